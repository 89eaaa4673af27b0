package dto

import (
	"time"

	"github.com/playhall/lobby-chat-api/internal/models"
)

// GoogleLoginRequest carries the opaque Google credential from the frontend.
type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required,min=10"`
}

// UserResponse is the serialized lobby user profile.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PictureURL  string    `json:"pictureUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		PictureURL:  user.PictureURL,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}
