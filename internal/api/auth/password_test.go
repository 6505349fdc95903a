package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"minimal", "abcdef", true},
		{"typical", "correct horse battery", true},
		{"exactly 72", strings.Repeat("a", 72), true},

		{"empty", "", false},
		{"spaces only", "        ", false},
		{"too short", "abc12", false},
		{"too long", strings.Repeat("a", 73), false},
		{"multibyte over limit", strings.Repeat("é", 37), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if got := err == nil; got != tc.wantOK {
				t.Errorf("ValidatePassword(%q) error=%v, want valid=%v", tc.password, err, tc.wantOK)
			}
		})
	}
}

func TestValidatePassword_Messages(t *testing.T) {
	err := ValidatePassword("abc")
	var validErr *PasswordValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("err = %v, want *PasswordValidationError", err)
	}
	if !strings.Contains(validErr.Messages[0], "at least 6") {
		t.Errorf("message = %q", validErr.Messages[0])
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must differ from password")
	}
	if !CheckPassword(hash, "secret1") {
		t.Error("CheckPassword should accept correct password")
	}
	if CheckPassword(hash, "secret2") {
		t.Error("CheckPassword should reject wrong password")
	}
}
