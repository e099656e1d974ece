package middleware

import (
	"net/http"
	"strings"

	"github.com/gh1989/nethub/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth checks a bearer API key against a single bcrypt hash. With no hash
// configured every request is let through.
type Auth struct {
	hash []byte
}

// NewAuth creates a new Auth middleware from a bcrypt hash, which may be empty.
func NewAuth(keyHash string) *Auth {
	return &Auth{hash: []byte(strings.TrimSpace(keyHash))}
}

// Enabled reports whether a key is required.
func (a *Auth) Enabled() bool {
	return len(a.hash) > 0
}

// Authenticate validates the Bearer token and records the key prefix in the
// request context for rate limiting.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}
		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.hash, []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		r = r.WithContext(setKeyPrefix(r.Context(), rawKey[:keyPrefixLen]))
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
