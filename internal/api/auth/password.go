package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

// PasswordValidationError contains details about password validation failure.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// ValidatePassword checks the password length policy.
func ValidatePassword(password string) error {
	var messages []string

	if strings.TrimSpace(password) == "" {
		messages = append(messages, "password is required")
	} else if len(password) < MinPasswordLength {
		messages = append(messages, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		messages = append(messages, fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}

	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}
	return nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
