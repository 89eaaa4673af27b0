package router

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playhall/lobby-chat-api/internal/config"
	"github.com/playhall/lobby-chat-api/internal/handler"
	"github.com/playhall/lobby-chat-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler *handler.ChatHandler
	AuthHandler *handler.AuthHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/healthz", handler.HealthCheck())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if deps.AuthHandler != nil {
		auth := app.Group("/auth", func(c *fiber.Ctx) error {
			c.Set("X-Application", cfg.AppName)
			return c.Next()
		})
		deps.AuthHandler.Register(auth)
	}

	if deps.ChatHandler != nil {
		chat := app.Group("/chat", middleware.RequireIdentity())
		deps.ChatHandler.Register(chat)
	}
}
