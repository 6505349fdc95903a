package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/devroom/internal/api/auth"
)

// Context keys for storing user information.
type contextKey string

const (
	userIDKey  contextKey = "user_id"
	emailKey   contextKey = "email"
	claimsKey  contextKey = "claims"
	tokenKey   contextKey = "token"
	projectKey contextKey = "project"
)

// TokenVerifier validates a session token, including revocation.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// JWTAuth returns middleware that requires a valid, non-revoked bearer token.
func JWTAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				jsonUnauthorized(w, "invalid or expired token")
				return
			}
			tokenString := strings.TrimSpace(parts[1])

			claims, err := verifier.Verify(r.Context(), tokenString)
			if errors.Is(err, auth.ErrTokenRevoked) {
				log.Printf("jwt auth rejected revoked token from %s", r.RemoteAddr)
				jsonUnauthorized(w, "token has been revoked")
				return
			}
			if err != nil {
				log.Printf("jwt auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			ctx = context.WithValue(ctx, claimsKey, claims)
			ctx = context.WithValue(ctx, tokenKey, tokenString)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetEmail returns the user email from context.
func GetEmail(ctx context.Context) string {
	if v := ctx.Value(emailKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetClaims returns the JWT claims from context.
func GetClaims(ctx context.Context) *auth.Claims {
	if v := ctx.Value(claimsKey); v != nil {
		if c, ok := v.(*auth.Claims); ok {
			return c
		}
	}
	return nil
}

// GetToken returns the raw bearer token that authenticated the request.
func GetToken(ctx context.Context) string {
	if v := ctx.Value(tokenKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUser returns a context carrying an authenticated user, for handlers tested without JWTAuth.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}
