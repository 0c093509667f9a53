package api

import (
	"net/http"

	"github.com/dom/account-api/internal/api/handlers"
	"github.com/dom/account-api/internal/api/middleware"
	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
)

// NewRouter wires every endpoint. rdb may be nil, which disables rate limiting.
func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config, rdb *goredis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/", handlers.Welcome(cfg.AppName))
	r.Get("/health", handlers.Health)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Account)
	userHandler := handlers.NewUserHandler(services.User)
	roleHandler := handlers.NewRoleHandler(services.Role)
	presenceHandler := handlers.NewPresenceHandler(hub, services.Token, services.Access)

	authenticated := middleware.Auth(services.Token)
	adminOnly := middleware.RequireAccess(services.Access, domain.PermissionAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", handlers.Welcome(cfg.AppName))

		r.Route("/auth", func(r chi.Router) {
			// Guest routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.RateLimit, rdb))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Get("/activate/{code}", authHandler.Activate)
				r.Post("/email/reset/password/link", authHandler.SendResetLink)
				r.Post("/reset/password", authHandler.ResetPassword)
				r.Get("/refresh", authHandler.Refresh)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/user", authHandler.Me)
				r.Put("/user/update", authHandler.UpdateProfile)
				r.Put("/user/password/update", authHandler.ChangePassword)
				r.Get("/logout", authHandler.Logout)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(adminOnly)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/store", userHandler.Store)
				r.Get("/show/{id}", userHandler.Show)
				r.Put("/update/{id}", userHandler.Update)
				r.Put("/role/update/{id}", userHandler.UpdateRole)
				r.Put("/deactivate/{id}", userHandler.Deactivate)
				r.Put("/reactivate/{id}", userHandler.Reactivate)
				r.Delete("/delete/{id}", userHandler.Delete)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", roleHandler.List)
				r.Post("/store", roleHandler.Store)
				r.Put("/update/{id}", roleHandler.Update)
				r.Delete("/delete/{id}", roleHandler.Delete)
			})
		})

		// WebSocket endpoint, authenticated through ?token=
		r.Get("/ws/presence", presenceHandler.Handle)
	})

	return r
}
