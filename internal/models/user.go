package models

import (
	"strings"
	"time"
)

// User represents an account that can join project rooms.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User with a normalized email and initialized timestamps.
func NewUser(email string) *User {
	now := time.Now()
	return &User{
		Email:     NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Identity returns the sender reference used in chat messages.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
