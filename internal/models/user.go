package models

import "time"

// User is a lobby user profile keyed by the identity provider subject.
type User struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Email       string    `gorm:"size:320;index" json:"email"`
	Name        string    `gorm:"size:200" json:"name"`
	PictureURL  string    `gorm:"size:512" json:"picture_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}
