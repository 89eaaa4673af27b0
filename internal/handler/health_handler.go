package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports service liveness.
func HealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}
