package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/middleware"
	"github.com/playhall/lobby-chat-api/internal/service"
)

type mockChatService struct {
	sendFn     func(ctx context.Context, sender service.Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error)
	historyFn  func(ctx context.Context, caller service.Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error)
	channelsFn func(ctx context.Context, caller service.Identity) ([]dto.ChannelSummary, error)
}

func (m *mockChatService) Send(ctx context.Context, sender service.Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
	return m.sendFn(ctx, sender, req)
}

func (m *mockChatService) History(ctx context.Context, caller service.Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error) {
	return m.historyFn(ctx, caller, query)
}

func (m *mockChatService) Channels(ctx context.Context, caller service.Identity) ([]dto.ChannelSummary, error) {
	return m.channelsFn(ctx, caller)
}

func (m *mockChatService) Subscribe(channelID string) (<-chan dto.ChatMessageResponse, func()) {
	ch := make(chan dto.ChatMessageResponse)
	return ch, func() { close(ch) }
}

func (m *mockChatService) Start(ctx context.Context) {}

func newChatApp(svc service.ChatService) *fiber.App {
	app := fiber.New()
	chat := app.Group("/chat", middleware.RequireIdentity())
	NewChatHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop()).Register(chat)
	return app
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestPostMessageRequiresIdentity(t *testing.T) {
	app := newChatApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewBufferString(`{"channelType":"global","body":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var payload struct {
		Message        string `json:"message"`
		RequiredHeader string `json:"requiredHeader"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, "Missing authentication header", payload.Message)
	require.Equal(t, "x-user-id", payload.RequiredHeader)
}

func TestPostMessageValidationFailure(t *testing.T) {
	app := newChatApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewBufferString(`{"channelType":"broadcast","body":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Message string   `json:"message"`
		Issues  []string `json:"issues"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, "Invalid request", payload.Message)
	require.NotEmpty(t, payload.Issues)
}

func TestPostMessageCreated(t *testing.T) {
	svc := &mockChatService{
		sendFn: func(ctx context.Context, sender service.Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
			require.Equal(t, "user-1", sender.ID)
			require.Equal(t, "Alice", sender.Name)
			return dto.ChatMessageResponse{
				ID:        "msg-1",
				ChannelID: "global:default",
				SenderID:  sender.ID,
				Body:      req.Body,
				CreatedAt: time.Now().UTC(),
			}, nil
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewBufferString(`{"channelType":"global","body":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-user-id", "user-1")
	req.Header.Set("x-user-name", "Alice")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		Message dto.ChatMessageResponse `json:"message"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, "msg-1", payload.Message.ID)
	require.Equal(t, "global:default", payload.Message.ChannelID)
}

func TestPostMessageDescriptorFailureIs400(t *testing.T) {
	svc := &mockChatService{
		sendFn: func(ctx context.Context, sender service.Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
			return dto.ChatMessageResponse{}, service.ErrDirectParticipants
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewBufferString(`{"channelType":"direct","body":"hi","participantIds":["user-1"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, service.ErrDirectParticipants.Error(), payload.Message)
}

func TestPostMessageUpstreamFailureIs500(t *testing.T) {
	svc := &mockChatService{
		sendFn: func(ctx context.Context, sender service.Identity, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
			return dto.ChatMessageResponse{}, errors.New("store unavailable")
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewBufferString(`{"channelType":"global","body":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, "Chat router error", payload.Message)
	require.Equal(t, "store unavailable", payload.Details)
}

func TestGetMessagesParsesQuery(t *testing.T) {
	svc := &mockChatService{
		historyFn: func(ctx context.Context, caller service.Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error) {
			require.Equal(t, "direct", query.ChannelType)
			require.Equal(t, []string{"user-2", "user-3"}, query.ParticipantIDs)
			require.Equal(t, 25, query.Limit)
			return []dto.ChatMessageResponse{{ID: "msg-1"}}, nil
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/chat/messages?channelType=direct&participantIds=user-2,%20user-3&limit=25", nil)
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Messages []dto.ChatMessageResponse `json:"messages"`
	}
	decodeBody(t, resp, &payload)
	require.Len(t, payload.Messages, 1)
}

func TestGetMessagesRejectsBadLimit(t *testing.T) {
	app := newChatApp(&mockChatService{})

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/chat/messages?channelId=global:default&limit="+limit, nil)
		req.Header.Set("x-user-id", "user-1")

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestGetMessagesEmptyHistoryIsEmptyArray(t *testing.T) {
	svc := &mockChatService{
		historyFn: func(ctx context.Context, caller service.Identity, query dto.MessagesQuery) ([]dto.ChatMessageResponse, error) {
			return nil, nil
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/chat/messages?channelId=global:default", nil)
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"messages":[]}`, string(raw))
}

func TestListChannels(t *testing.T) {
	svc := &mockChatService{
		channelsFn: func(ctx context.Context, caller service.Identity) ([]dto.ChannelSummary, error) {
			return []dto.ChannelSummary{
				{ChannelID: "global:default", ChannelType: "global"},
			}, nil
		},
	}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/chat/channels", nil)
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Channels []dto.ChannelSummary `json:"channels"`
	}
	decodeBody(t, resp, &payload)
	require.Len(t, payload.Channels, 1)
	require.Equal(t, "global:default", payload.Channels[0].ChannelID)
}

func TestStreamRequiresChannelID(t *testing.T) {
	app := newChatApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/chat/stream", nil)
	req.Header.Set("x-user-id", "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStreamRejectsForeignDirectChannel(t *testing.T) {
	app := newChatApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/chat/stream?channelId=direct:adam--zoe", nil)
	req.Header.Set("x-user-id", "intruder")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
