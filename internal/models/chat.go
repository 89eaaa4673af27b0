package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChatMessage is a single persisted chat message. Records are immutable once
// created; there is no edit or delete lifecycle.
type ChatMessage struct {
	ID                string            `gorm:"primaryKey;size:64" json:"id"`
	ChannelID         string            `gorm:"size:256;index" json:"channel_id"`
	ChannelType       string            `gorm:"size:16" json:"channel_type"`
	SenderID          string            `gorm:"size:64;index" json:"sender_id"`
	SenderDisplayName string            `gorm:"size:120" json:"sender_display_name,omitempty"`
	Body              string            `gorm:"type:text" json:"body"`
	Metadata          datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
