package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// ErrInvalidRefreshToken is returned for unknown, expired or revoked tokens.
var ErrInvalidRefreshToken = errors.New("refresh token expired, revoked or unknown")

// TokenService issues, validates and rotates refresh tokens.
type TokenService struct {
	storage storage.Storage
	ttl     time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(store storage.Storage, ttl time.Duration) *TokenService {
	return &TokenService{
		storage: store,
		ttl:     ttl,
	}
}

// CreateRefreshToken stores a new refresh token for the user and returns
// the plaintext value for the client.
func (s *TokenService) CreateRefreshToken(ctx context.Context, userID string) (string, error) {
	token, plain, err := models.NewRefreshToken(userID, s.ttl)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.storage.Tokens().Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	return plain, nil
}

// ValidateRefreshToken returns the user owning a live refresh token.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, plain string) (*models.User, error) {
	token, err := s.storage.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if token == nil || !token.IsValid() {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.storage.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}

	return user, nil
}

// RevokeRefreshToken revokes a refresh token.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, plain string) error {
	return s.storage.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain))
}

// RevokeAllUserTokens revokes every refresh token of a user.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.storage.Tokens().RevokeAllForUser(ctx, userID)
}

// RotateRefreshToken revokes the old token and issues a new one.
func (s *TokenService) RotateRefreshToken(ctx context.Context, oldPlain, userID string) (string, error) {
	if err := s.RevokeRefreshToken(ctx, oldPlain); err != nil {
		log.Printf("rotate refresh token: revoke old token: %v", err)
	}
	return s.CreateRefreshToken(ctx, userID)
}

// CleanupExpiredTokens removes expired tokens from storage.
func (s *TokenService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.storage.Tokens().DeleteExpired(ctx)
}

// TTL returns the refresh token time-to-live.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
