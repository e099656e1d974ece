package handler

import (
	"context"
	"net/http"

	"github.com/gh1989/nethub/internal/api/response"
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/health.
func NewHealthHandler(redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"redis": "ok"}

		if err := redis.Ping(r.Context()); err != nil {
			checks["redis"] = "degraded"
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
