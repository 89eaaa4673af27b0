package dto

import (
	"time"

	"github.com/playhall/lobby-chat-api/internal/models"
)

// SendMessageRequest is the payload accepted by POST /chat/messages.
type SendMessageRequest struct {
	ChannelType       string                 `json:"channelType" validate:"required,oneof=global direct game"`
	Body              string                 `json:"body" validate:"required,min=1,max=2000"`
	Metadata          map[string]interface{} `json:"metadata" validate:"omitempty"`
	SenderDisplayName string                 `json:"senderDisplayName" validate:"omitempty,min=1,max=120"`
	Scope             string                 `json:"scope" validate:"omitempty,min=1,max=100"`
	ParticipantIDs    []string               `json:"participantIds" validate:"omitempty,max=2,dive,min=1"`
	GameID            string                 `json:"gameId" validate:"omitempty,min=1,max=100"`
}

// MessagesQuery carries the resolved query parameters of GET /chat/messages.
// Limit is already parsed and defaulted by the handler.
type MessagesQuery struct {
	ChannelID      string
	ChannelType    string
	Scope          string
	ParticipantIDs []string
	GameID         string
	Limit          int
}

// ChatMessageResponse is the wire representation of a stored message.
type ChatMessageResponse struct {
	ID                string                 `json:"id"`
	ChannelID         string                 `json:"channelId"`
	ChannelType       string                 `json:"channelType"`
	SenderID          string                 `json:"senderId"`
	SenderDisplayName string                 `json:"senderDisplayName,omitempty"`
	Body              string                 `json:"body"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// ChannelSummary describes a channel derived from a stored channel id.
type ChannelSummary struct {
	ChannelID   string                 `json:"channelId"`
	ChannelType string                 `json:"channelType"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewChatMessageResponse converts a model into its wire representation.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:                message.ID,
		ChannelID:         message.ChannelID,
		ChannelType:       message.ChannelType,
		SenderID:          message.SenderID,
		SenderDisplayName: message.SenderDisplayName,
		Body:              message.Body,
		Metadata:          map[string]interface{}(message.Metadata),
		CreatedAt:         message.CreatedAt,
		UpdatedAt:         message.UpdatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}
