package api

import (
	"net/http"

	mw "github.com/gh1989/nethub/internal/api/middleware"
	"github.com/gh1989/nethub/internal/api/response"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth           *mw.Auth
	RateLimit      *mw.RateLimit
	AllowedOrigins []string

	HealthHandler    http.HandlerFunc
	CreateJobHandler http.HandlerFunc
	GetJobHandler    http.HandlerFunc
	ListJobsHandler  http.HandlerFunc
	StatsHandler     http.HandlerFunc
	MetricsHandler   http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
// Reads are public; job submission goes through auth and rate limiting.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(deps.AllowedOrigins))

	r.Get("/api/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", orNotImplemented(deps.ListJobsHandler))
		r.Get("/stats", orNotImplemented(deps.StatsHandler))
		r.Get("/{id}", orNotImplemented(deps.GetJobHandler))

		r.Group(func(r chi.Router) {
			if deps.Auth != nil {
				r.Use(deps.Auth.Authenticate)
			}
			if deps.RateLimit != nil {
				r.Use(deps.RateLimit.Limit)
			}
			r.Post("/", orNotImplemented(deps.CreateJobHandler))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
