package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gh1989/nethub/internal/api/response"
	"github.com/gh1989/nethub/internal/store"
)

const (
	defaultRequestsPerMinute = 60
	rateLimitWindow          = 60 * time.Second
	rateLimitKeyPrefix       = "nethub:ratelimit:"
)

// RateLimit is a fixed one-minute window counter kept in the store.
type RateLimit struct {
	counter        store.Counter
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c store.Counter, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{counter: c, requestsPerMin: requestsPerMin}
}

// RateLimitKey is the counter key for one client.
func RateLimitKey(client string) string {
	return rateLimitKeyPrefix + client
}

// Limit counts the request against the caller's window and rejects it with
// 429 once the limit is passed.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := rl.counter.IncrWithExpiry(r.Context(), RateLimitKey(clientID(r)), rateLimitWindow)
		if err != nil {
			// Fail open.
			slog.Warn("rate limit counter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(rateLimitWindow).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
