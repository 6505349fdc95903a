package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/devroom/internal/models"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!")

func testUser() *models.User {
	return &models.User{ID: "user-123", Email: "alice@example.com"}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, 24*time.Hour)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", claims.Email)
	}
	if claims.Issuer != "devroom" {
		t.Errorf("Issuer = %q, want devroom", claims.Issuer)
	}
}

func TestJWTService_RejectsUserWithoutID(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	if _, err := svc.GenerateToken(&models.User{Email: "x@example.com"}); err == nil {
		t.Error("expected error for user without id")
	}
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"wrong-segments", "a.b"},
		{"invalid-signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1aWQiOiJ0ZXN0In0.invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tc.token); err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestJWTService_DifferentSecret(t *testing.T) {
	svc1 := NewJWTService([]byte("secret-one-32-bytes-long!!!!!!!"), time.Hour)
	svc2 := NewJWTService([]byte("secret-two-32-bytes-long!!!!!!!"), time.Hour)

	token, err := svc1.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("expected error validating token with different secret")
	}
}

func TestJWTService_ForeignIssuer(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-123",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	svc := NewJWTService(testSecret, time.Hour)
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Millisecond)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// NumericDate has second precision.
	time.Sleep(1100 * time.Millisecond)

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTService_TTLSeconds(t *testing.T) {
	svc := NewJWTService(testSecret, 24*time.Hour)
	if got := svc.TTLSeconds(); got != 86400 {
		t.Errorf("TTLSeconds() = %d, want 86400", got)
	}
}
