package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/recall-api/internal/api/middleware"
	"github.com/phrazzld/recall-api/internal/api/shared"
)

// healthTimeout bounds the readiness check.
const healthTimeout = 2 * time.Second

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	Notebooks *NotebookHandler
	Curves    *CurveHandler
	Items     *ItemHandler
	Stats     *StatsHandler
	Todos     *TodoHandler
}

// RouterConfig holds the cross-cutting pieces of the router.
type RouterConfig struct {
	Logger *slog.Logger
	Auth   *middleware.AuthMiddleware
	// Metrics and MetricsHandler are optional; /metrics is only mounted
	// when MetricsHandler is set.
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler
	// Ping reports whether dependencies are reachable. Nil means healthy.
	Ping func(ctx context.Context) error
}

// NewRouter builds the application's HTTP handler.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewTraceMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/refresh", h.Auth.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Authenticate)

			r.Get("/me", h.Auth.Me)
			r.Delete("/me", h.Auth.DeleteAccount)
			r.Put("/me/email", h.Auth.UpdateEmail)
			r.Put("/me/password", h.Auth.UpdatePassword)

			r.Route("/notebooks", func(r chi.Router) {
				r.Get("/", h.Notebooks.List)
				r.Post("/", h.Notebooks.Create)
				r.Get("/{id}", h.Notebooks.Get)
				r.Put("/{id}", h.Notebooks.Update)
				r.Delete("/{id}", h.Notebooks.Delete)
			})

			r.Route("/curves", func(r chi.Router) {
				r.Get("/", h.Curves.List)
				r.Post("/", h.Curves.Create)
				r.Get("/{id}", h.Curves.Get)
				r.Put("/{id}", h.Curves.Update)
				r.Delete("/{id}", h.Curves.Delete)
				r.Post("/{id}/default", h.Curves.SetDefault)
			})

			r.Route("/items", func(r chi.Router) {
				r.Get("/", h.Items.List)
				r.Post("/", h.Items.Create)
				r.Get("/due", h.Items.Due)
				r.Get("/{id}", h.Items.Get)
				r.Put("/{id}", h.Items.Update)
				r.Delete("/{id}", h.Items.Delete)
				r.Get("/{id}/history", h.Items.History)
				r.Post("/{id}/remember", h.Items.Remember)
				r.Post("/{id}/forget", h.Items.Forget)
				r.Post("/{id}/pause", h.Items.Pause)
				r.Post("/{id}/resume", h.Items.Resume)
				r.Post("/{id}/postpone", h.Items.Postpone)
				r.Post("/{id}/restore", h.Items.Restore)
			})

			r.Get("/stats/weekly", h.Stats.Weekly)
			r.Get("/stats/home", h.Stats.Home)

			r.Route("/todos", func(r chi.Router) {
				r.Get("/", h.Todos.List)
				r.Post("/", h.Todos.Create)
				r.Put("/{id}", h.Todos.Update)
				r.Delete("/{id}", h.Todos.Delete)
				r.Post("/{id}/complete", h.Todos.Complete)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", h.Todos.ListTags)
				r.Post("/", h.Todos.CreateTag)
				r.Put("/{id}", h.Todos.UpdateTag)
				r.Delete("/{id}", h.Todos.DeleteTag)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Ping(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}
