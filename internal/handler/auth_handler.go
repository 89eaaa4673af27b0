package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/service"
	"github.com/playhall/lobby-chat-api/internal/utils"
)

// AuthHandler exposes the Google sign-in and session endpoints.
type AuthHandler struct {
	service    service.AuthService
	validator  *validator.Validate
	cookieName string
	sessionTTL time.Duration
	secure     bool
	logger     zerolog.Logger
}

// NewAuthHandler creates an auth handler instance.
func NewAuthHandler(service service.AuthService, validator *validator.Validate, cookieName string, sessionTTL time.Duration, secure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		validator:  validator,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
		secure:     secure,
		logger:     logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds auth routes under the provided router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/google", h.loginWithGoogle)
	router.Get("/session", h.session)
	router.Post("/signout", h.signOut)
}

func (h *AuthHandler) loginWithGoogle(c *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request")
	}

	if err := h.validator.Struct(req); err != nil {
		return utils.SendValidationError(c, err)
	}

	user, token, err := h.service.LoginWithGoogle(c.UserContext(), req.Credential)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			return utils.SendError(c, fiber.StatusUnauthorized, "Authentication failed")
		}
		h.logger.Error().Err(err).Msg("google login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "Unable to sign in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.JSON(fiber.Map{"user": user})
}

func (h *AuthHandler) session(c *fiber.Ctx) error {
	token := c.Cookies(h.cookieName)

	user, err := h.service.Session(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			return utils.SendError(c, fiber.StatusUnauthorized, "Session expired")
		}
		h.logger.Error().Err(err).Msg("session lookup failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "Unable to load session")
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.SendStatus(fiber.StatusNoContent)
}
