package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingRevocationSet struct{}

func (failingRevocationSet) Mark(context.Context, string, time.Duration) error {
	return errors.New("down")
}

func (failingRevocationSet) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	set := NewMemoryRevocationSet(time.Hour)
	t.Cleanup(func() { set.Close() })
	return NewTokenService(NewJWTService(testSecret, time.Hour), set, 0)
}

func TestTokenService_IssueVerifyRevoke(t *testing.T) {
	svc := newTestTokenService(t)
	ctx := context.Background()

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q", claims.UserID)
	}

	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Verify after revoke err = %v, want ErrTokenRevoked", err)
	}
}

func TestTokenService_RevokedTokenDoesNotAffectOthers(t *testing.T) {
	svc := newTestTokenService(t)
	ctx := context.Background()

	first, _ := svc.Issue(testUser())
	// Tokens issued in the same second with the same claims are identical.
	time.Sleep(1100 * time.Millisecond)
	second, _ := svc.Issue(testUser())
	if first == second {
		t.Fatal("expected distinct tokens")
	}

	if err := svc.Revoke(ctx, first); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Verify(ctx, second); err != nil {
		t.Errorf("second token should still verify: %v", err)
	}
}

func TestTokenService_RevocationLookupFailureRejects(t *testing.T) {
	svc := NewTokenService(NewJWTService(testSecret, time.Hour), failingRevocationSet{}, time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Verify(context.Background(), token); err == nil {
		t.Error("expected rejection when revocation set is unavailable")
	}
}

func TestStripBearer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"abc", "abc"},
		{"Bearerabc", "Bearerabc"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := StripBearer(tc.in); got != tc.want {
			t.Errorf("StripBearer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
