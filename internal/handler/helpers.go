package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/playhall/lobby-chat-api/internal/middleware"
	"github.com/playhall/lobby-chat-api/internal/service"
)

func callerIdentity(c *fiber.Ctx) (service.Identity, bool) {
	id, name, ok := middleware.CallerIdentity(c)
	if !ok {
		return service.Identity{}, false
	}
	return service.Identity{ID: id, Name: name}, true
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseLimit interprets the optional limit query parameter. Zero means
// "use the configured default"; anything non-numeric or non-positive is a
// caller error.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return limit, nil
}
