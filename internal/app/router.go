package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/courier-app/courier/internal/messages"
	"github.com/courier-app/courier/internal/token"
	"github.com/courier-app/courier/internal/users"
	"github.com/courier-app/courier/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Issuer          *token.Issuer
	UsersHandler    *users.Handler
	MessagesHandler *messages.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with Courier defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Credential endpoints run bcrypt, so they get their own rate limit.
	r.Route("/auth", func(r chi.Router) {
		limit := 10
		if params.Config != nil && params.Config.AuthRatePerMinute > 0 {
			limit = params.Config.AuthRatePerMinute
		}
		r.Use(httprate.LimitByIP(limit, time.Minute))
		params.UsersHandler.MountAuthRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(params.Issuer))
		r.Route("/users", params.UsersHandler.MountUserRoutes)
		r.Route("/messages", params.MessagesHandler.MountRoutes)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
