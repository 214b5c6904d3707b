package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Members *handlers.MembersHandler
	Gate    *auth.Gate
}

// RegisterRoutes wires HTTP routes. The gate runs once per protected
// request; role and ownership checks sit per-route on top of it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	protected := authGroup.Group("", cfg.Gate.Handle, auth.RequireAuthenticated())
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/me", cfg.Auth.Me)

	members := app.Group("/members", cfg.Gate.Handle)
	members.Get("/:id", auth.RequireSelfOrAdmin("id"), cfg.Members.Get)

	admin := app.Group("/admin", cfg.Gate.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/members", cfg.Members.List)
}
