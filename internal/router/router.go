package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dashboard-kiosk/internal/config"
	"dashboard-kiosk/internal/handler"
	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/middleware"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Group     *handler.GroupHandler
	Dashboard *handler.DashboardHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	h Handlers,
	healthCheck func(r *http.Request) error,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := healthCheck(req); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/logout", h.Auth.Logout)
			auth.Post("/verify", h.Auth.Verify)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
			users.Get("/", h.User.List)
			users.Get("/{id}", h.User.Get)
			users.Post("/", h.User.Create)
			users.Put("/{id}", h.User.Update)
			users.Delete("/{id}", h.User.Delete)
		})

		api.Route("/groups", func(groups chi.Router) {
			groups.Use(authMiddleware.RequireAuth)
			groups.Get("/", h.Group.List)
			groups.Get("/{id}", h.Group.Get)
			groups.With(authMiddleware.RequireAdmin).Post("/", h.Group.Create)
			groups.With(authMiddleware.RequireAdmin).Put("/{id}", h.Group.Update)
			groups.With(authMiddleware.RequireAdmin).Delete("/{id}", h.Group.Delete)
		})

		api.Route("/dashboards", func(dashboards chi.Router) {
			dashboards.Use(authMiddleware.RequireAuth)
			dashboards.With(authMiddleware.RequireAdmin).Get("/", h.Dashboard.List)
			dashboards.Get("/active", h.Dashboard.ListActive)
			dashboards.Get("/mine", h.Dashboard.ListMine)
			dashboards.With(authMiddleware.RequireAdmin).Get("/{id}", h.Dashboard.Get)
			dashboards.With(authMiddleware.RequireAdmin).Post("/", h.Dashboard.Create)
			dashboards.With(authMiddleware.RequireAdmin).Put("/{id}", h.Dashboard.Update)
			dashboards.With(authMiddleware.RequireAdmin).Delete("/{id}", h.Dashboard.Delete)
			dashboards.With(authMiddleware.RequireAdmin).Post("/{id}/reorder", h.Dashboard.Reorder)
		})
	})

	return r
}
