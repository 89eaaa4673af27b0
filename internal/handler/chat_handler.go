package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/playhall/lobby-chat-api/internal/channel"
	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/service"
	"github.com/playhall/lobby-chat-api/internal/utils"
)

const streamHeartbeatInterval = 15 * time.Second

// ChatHandler wires the chat endpoints, including the event stream.
type ChatHandler struct {
	service   service.ChatService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/messages", h.postMessage)
	router.Get("/messages", h.getMessages)
	router.Get("/channels", h.listChannels)
	router.Get("/stream", h.stream)
}

func (h *ChatHandler) postMessage(c *fiber.Ctx) error {
	identity, ok := callerIdentity(c)
	if !ok {
		return utils.SendMissingAuth(c, "x-user-id")
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request")
	}

	if err := h.validator.Struct(req); err != nil {
		return utils.SendValidationError(c, err)
	}

	record, err := h.service.Send(c.UserContext(), identity, req)
	if err != nil {
		if service.IsBadRequest(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Msg("failed to save chat message")
		return utils.SendRouterError(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": record})
}

func (h *ChatHandler) getMessages(c *fiber.Ctx) error {
	identity, ok := callerIdentity(c)
	if !ok {
		return utils.SendMissingAuth(c, "x-user-id")
	}

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := dto.MessagesQuery{
		ChannelID:   c.Query("channelId"),
		ChannelType: c.Query("channelType"),
		Scope:       c.Query("scope"),
		GameID:      c.Query("gameId"),
		Limit:       limit,
	}
	if raw := c.Query("participantIds"); raw != "" {
		query.ParticipantIDs = splitAndTrim(raw)
	}

	messages, err := h.service.History(c.UserContext(), identity, query)
	if err != nil {
		if service.IsBadRequest(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Msg("failed to fetch chat history")
		return utils.SendRouterError(c, err.Error())
	}

	if messages == nil {
		messages = []dto.ChatMessageResponse{}
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) listChannels(c *fiber.Ctx) error {
	identity, ok := callerIdentity(c)
	if !ok {
		return utils.SendMissingAuth(c, "x-user-id")
	}

	channels, err := h.service.Channels(c.UserContext(), identity)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list chat channels")
		return utils.SendRouterError(c, err.Error())
	}

	if channels == nil {
		channels = []dto.ChannelSummary{}
	}

	return c.JSON(fiber.Map{"channels": channels})
}

func (h *ChatHandler) stream(c *fiber.Ctx) error {
	identity, ok := callerIdentity(c)
	if !ok {
		return utils.SendMissingAuth(c, "x-user-id")
	}

	channelID := strings.TrimSpace(c.Query("channelId"))
	if channelID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "channelId is required")
	}

	parsed, err := channel.Parse(channelID)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if !channel.Accessible(parsed, identity.ID) {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrAccessDenied.Error())
	}

	subscription, cancel := h.service.Subscribe(parsed.ChannelID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	streamLogger := h.logger.With().Str("channel_id", parsed.ChannelID).Str("user_id", identity.ID).Logger()
	streamLogger.Info().Msg("chat stream opened")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer streamLogger.Info().Msg("chat stream closed")

		heartbeat := time.NewTicker(streamHeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case message, open := <-subscription:
				if !open {
					return
				}
				payload, err := json.Marshal(message)
				if err != nil {
					streamLogger.Warn().Err(err).Msg("failed to encode stream event")
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
