package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/devroom/internal/models"
)

// ErrTokenRevoked is returned by Verify for tokens that were logged out.
var ErrTokenRevoked = errors.New("token revoked")

// TokenService issues session tokens and checks them against the revocation set.
type TokenService struct {
	jwt           *JWTService
	revoked       RevocationSet
	revocationTTL time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(jwt *JWTService, revoked RevocationSet, revocationTTL time.Duration) *TokenService {
	if revocationTTL <= 0 {
		revocationTTL = DefaultRevocationTTL
	}
	return &TokenService{
		jwt:           jwt,
		revoked:       revoked,
		revocationTTL: revocationTTL,
	}
}

// Issue creates a signed session token for user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Verify validates token and checks it has not been revoked.
// A revocation lookup failure is treated as a rejection.
func (s *TokenService) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke marks token invalid for the revocation TTL.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	return s.revoked.Mark(ctx, token, s.revocationTTL)
}

// TTLSeconds returns the lifetime of issued tokens in seconds.
func (s *TokenService) TTLSeconds() int {
	return s.jwt.TTLSeconds()
}

// StripBearer removes an optional "Bearer " prefix from a credential.
func StripBearer(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}
