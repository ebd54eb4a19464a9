package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kopma-dev/kopma-api/internal/config"
	"github.com/kopma-dev/kopma-api/internal/handler"
	"github.com/kopma-dev/kopma-api/internal/middleware"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	ApplicationHandler *handler.ApplicationHandler
	AdminHandler       *handler.AdminHandler
	EventHandler       *handler.EventHandler
	Users              repository.UserRepository
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Stored documents are served straight from disk.
	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}

	authenticate := middleware.Authenticate(cfg.JWTSecret, deps.Users)
	credentialLimiter := middleware.RateLimit("auth", cfg.LoginRatePerMin, time.Minute)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.RegisterPublic(auth, credentialLimiter)
		deps.AuthHandler.RegisterProtected(auth, authenticate)
	}

	review := api.Group("/review", authenticate,
		middleware.RequireRole(models.RolePSDA, models.RoleAdmin))
	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.Register(review)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.RegisterReview(review)
		deps.EventHandler.RegisterMember(api, authenticate)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", authenticate,
			middleware.RequireRole(models.RoleAdmin))
		deps.AdminHandler.Register(admin)
	}
}
