package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/playhall/lobby-chat-api/internal/dto"
	"github.com/playhall/lobby-chat-api/internal/repository"
	"github.com/playhall/lobby-chat-api/pkg/googleauth"
)

var (
	// ErrAuthenticationFailed indicates the identity provider rejected the credential.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrSessionInvalid indicates a missing, expired or orphaned session.
	ErrSessionInvalid = errors.New("session no longer valid")
)

// AuthService verifies Google credentials, maintains user profiles and
// issues session tokens.
type AuthService interface {
	LoginWithGoogle(ctx context.Context, credential string) (dto.UserResponse, string, error)
	Session(ctx context.Context, token string) (dto.UserResponse, error)
}

type authService struct {
	users    repository.UserRepository
	verifier googleauth.Verifier
	secret   []byte
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(users repository.UserRepository, verifier googleauth.Verifier, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	return &authService{
		users:    users,
		verifier: verifier,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) LoginWithGoogle(ctx context.Context, credential string) (dto.UserResponse, string, error) {
	profile, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.logger.Warn().Err(err).Msg("google credential rejected")
		return dto.UserResponse{}, "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	user, err := s.users.Upsert(ctx, repository.UserProfile{
		ID:         profile.ID,
		Email:      profile.Email,
		Name:       profile.Name,
		PictureURL: profile.PictureURL,
	})
	if err != nil {
		return dto.UserResponse{}, "", err
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.UserResponse{}, "", err
	}

	return dto.NewUserResponse(user), token, nil
}

func (s *authService) Session(ctx context.Context, token string) (dto.UserResponse, error) {
	if token == "" {
		return dto.UserResponse{}, ErrSessionInvalid
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return dto.UserResponse{}, ErrSessionInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return dto.UserResponse{}, ErrSessionInvalid
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return dto.UserResponse{}, ErrSessionInvalid
	}

	user, err := s.users.FindByID(ctx, subject)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, ErrSessionInvalid
	}
	if err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}
