package api

import (
	"net/http"

	mw "github.com/calebmorris/debrief/internal/api/middleware"
	"github.com/calebmorris/debrief/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ListJobsHandler    http.HandlerFunc
	SubmitJobHandler   http.HandlerFunc
	RegenerateHandler  http.HandlerFunc
	UpdateJobHandler   http.HandlerFunc
	DeleteJobHandler   http.HandlerFunc
	CompletionsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Route("/api/v1/recordings/{recordingID}/jobs", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListJobsHandler))
			r.Post("/", orNotImplemented(deps.SubmitJobHandler))
			r.Get("/completions", orNotImplemented(deps.CompletionsHandler))

			r.Post("/{jobID}/regenerate", orNotImplemented(deps.RegenerateHandler))
			r.Patch("/{jobID}", orNotImplemented(deps.UpdateJobHandler))
			r.Delete("/{jobID}", orNotImplemented(deps.DeleteJobHandler))
		})
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
