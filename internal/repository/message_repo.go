package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playhall/lobby-chat-api/internal/models"
)

// channelScanLimit bounds the channel discovery scan. Listing is best-effort
// and not guaranteed to cover every channel once the limit is exceeded.
const channelScanLimit = 1000

// MessageRepository is the persistence boundary for chat messages. Store
// errors propagate unwrapped; no retries happen at this layer.
type MessageRepository interface {
	Save(ctx context.Context, message *models.ChatMessage) error
	RecentByChannel(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error)
	ListChannelIDs(ctx context.Context) ([]string, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) RecentByChannel(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse to chronological ascending order for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) ListChannelIDs(ctx context.Context) ([]string, error) {
	var channelIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Distinct("channel_id").
		Limit(channelScanLimit).
		Pluck("channel_id", &channelIDs).Error
	if err != nil {
		return nil, err
	}
	return channelIDs, nil
}
