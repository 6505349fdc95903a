// Package auth issues, verifies and revokes session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/devroom/internal/models"
)

const tokenIssuer = "devroom"

// Claims represents the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// JWTService signs and parses session tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewJWTService creates a new JWT service.
func NewJWTService(secret []byte, ttl time.Duration) *JWTService {
	return &JWTService{
		secret: secret,
		ttl:    ttl,
		issuer: tokenIssuer,
	}
}

// GenerateToken creates a signed token for the given user.
func (s *JWTService) GenerateToken(user *models.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("generate token: user id is required")
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken checks signature, expiry and issuer and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// TTL returns the token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// TTLSeconds returns the token lifetime in seconds.
func (s *JWTService) TTLSeconds() int {
	return int(s.ttl.Seconds())
}
