package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/playhall/lobby-chat-api/internal/utils"
)

// Identity headers supplied out-of-band by the frontend session layer.
const (
	HeaderUserID   = "x-user-id"
	HeaderUserName = "x-user-name"
)

// Query fallbacks for EventSource clients, which cannot set request headers.
const (
	QueryUserID   = "userId"
	QueryUserName = "userName"
)

// RequireIdentity rejects requests without a caller identity and stores the
// id/name pair on the request for downstream handlers.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(HeaderUserID))
		userName := strings.TrimSpace(c.Get(HeaderUserName))

		if userID == "" {
			userID = strings.TrimSpace(c.Query(QueryUserID))
			if userName == "" {
				userName = strings.TrimSpace(c.Query(QueryUserName))
			}
		}

		if userID == "" {
			return utils.SendMissingAuth(c, HeaderUserID)
		}

		c.Locals("user_id", userID)
		if userName != "" {
			c.Locals("user_name", userName)
		}

		return c.Next()
	}
}

// CallerIdentity returns the identity stored by RequireIdentity.
func CallerIdentity(c *fiber.Ctx) (id string, name string, ok bool) {
	id, ok = c.Locals("user_id").(string)
	if !ok || id == "" {
		return "", "", false
	}
	name, _ = c.Locals("user_name").(string)
	return id, name, true
}
