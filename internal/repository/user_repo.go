package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/playhall/lobby-chat-api/internal/models"
)

// UserProfile carries the identity-provider fields used to upsert a user.
type UserProfile struct {
	ID         string
	Email      string
	Name       string
	PictureURL string
}

// UserRepository persists lobby user profiles.
type UserRepository interface {
	Upsert(ctx context.Context, profile UserProfile) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, profile UserProfile) (models.User, error) {
	now := time.Now().UTC()

	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", profile.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:          profile.ID,
			Email:       profile.Email,
			Name:        profile.Name,
			PictureURL:  profile.PictureURL,
			CreatedAt:   now,
			LastLoginAt: now,
		}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return models.User{}, err
		}
		return user, nil
	}
	if err != nil {
		return models.User{}, err
	}

	user.Email = profile.Email
	user.Name = profile.Name
	user.PictureURL = profile.PictureURL
	user.LastLoginAt = now
	if err := r.db.WithContext(ctx).Save(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}
