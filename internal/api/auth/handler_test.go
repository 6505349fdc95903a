package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

type mockUserRepository struct {
	users       []*models.User
	createError error
	getError    error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("insert user: %w", storage.ErrDuplicate)
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	return m.users, nil
}

func (m *mockUserRepository) ListExcept(ctx context.Context, userID string) ([]*models.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

type mockStorage struct {
	users *mockUserRepository
}

func (m *mockStorage) Open() error { return nil }
func (m *mockStorage) Close() error { return nil }
func (m *mockStorage) Migrate() error { return nil }
func (m *mockStorage) Users() storage.UserRepository { return m.users }
func (m *mockStorage) Projects() storage.ProjectRepository { return nil }
func (m *mockStorage) Messages() storage.MessageRepository { return nil }

func newTestHandler(t *testing.T) (*Handler, *mockUserRepository, *TokenService) {
	t.Helper()
	users := &mockUserRepository{}
	tokens := newTestTokenService(t)
	lockout := NewLockoutTracker(3, time.Minute)
	t.Cleanup(lockout.Close)
	return NewHandler(&mockStorage{users: users}, tokens, lockout), users, tokens
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) *SessionResponse {
	t.Helper()
	var resp struct {
		Data SessionResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp.Data
}

func TestRegister_Success(t *testing.T) {
	h, users, tokens := newTestHandler(t)

	w := postJSON(h.Register, `{"email":"  New@Example.com ","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("response leaks password hash")
	}

	resp := decodeSession(t, w)
	if resp.User.Email != "new@example.com" {
		t.Errorf("email = %q, want normalized", resp.User.Email)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d", resp.ExpiresIn)
	}
	claims, err := tokens.Verify(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Errorf("token uid = %s, want %s", claims.UserID, resp.User.ID)
	}
	if len(users.users) != 1 || !CheckPassword(users.users[0].PasswordHash, "secret1") {
		t.Error("user not stored with a bcrypt hash")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	h, _, _ := newTestHandler(t)

	postJSON(h.Register, `{"email":"dup@example.com","password":"secret1"}`)
	w := postJSON(h.Register, `{"email":"DUP@example.com","password":"secret2"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"missing both", `{}`, []string{"email", "password"}},
		{"bad email", `{"email":"nope","password":"secret1"}`, []string{"email"}},
		{"email too long", `{"email":"` + strings.Repeat("a", 45) + `@example.com","password":"secret1"}`, []string{"email"}},
		{"short password", `{"email":"ok@example.com","password":"123"}`, []string{"password"}},
		{"long password", `{"email":"ok@example.com","password":"` + strings.Repeat("x", 73) + `"}`, []string{"password"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, users, _ := newTestHandler(t)
			w := postJSON(h.Register, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}

			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != errCodeValidationFailed {
				t.Errorf("code = %s", resp.Error.Code)
			}
			got := map[string]bool{}
			for _, f := range resp.Error.Fields {
				got[f.Field] = true
			}
			for _, f := range tc.wantFields {
				if !got[f] {
					t.Errorf("missing field error for %s: %+v", f, resp.Error.Fields)
				}
			}
			if len(users.users) != 0 {
				t.Error("invalid registration created a user")
			}
		})
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	h, _, _ := newTestHandler(t)
	if w := postJSON(h.Register, `{`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	h, _, _ := newTestHandler(t)
	postJSON(h.Register, `{"email":"login@example.com","password":"secret1"}`)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"email":"Login@Example.com","password":"secret1"}`, http.StatusOK},
		{"wrong password", `{"email":"login@example.com","password":"nope123"}`, http.StatusUnauthorized},
		{"unknown user", `{"email":"ghost@example.com","password":"secret1"}`, http.StatusUnauthorized},
		{"missing password", `{"email":"login@example.com"}`, http.StatusBadRequest},
		{"invalid body", `not json`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(h.Login, tc.body)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestLogin_Lockout(t *testing.T) {
	h, _, _ := newTestHandler(t)
	postJSON(h.Register, `{"email":"lock@example.com","password":"secret1"}`)

	for i := 0; i < 3; i++ {
		postJSON(h.Login, `{"email":"lock@example.com","password":"wrong12"}`)
	}

	w := postJSON(h.Login, `{"email":"lock@example.com","password":"secret1"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 while locked", w.Code)
	}
}

func TestLogin_StoreError(t *testing.T) {
	h, users, _ := newTestHandler(t)
	users.getError = errors.New("database is locked")

	w := postJSON(h.Login, `{"email":"a@example.com","password":"secret1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestLogout(t *testing.T) {
	h, _, tokens := newTestHandler(t)
	w := postJSON(h.Register, `{"email":"out@example.com","password":"secret1"}`)
	token := decodeSession(t, w).Token

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, err := tokens.Verify(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Verify after logout err = %v, want ErrTokenRevoked", err)
	}
}

func TestLogout_MissingToken(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.org"}
	invalid := []string{"", "a@b", "plainaddress", "@example.com", strings.Repeat("a", 50) + "@x.io"}

	for _, e := range valid {
		if fe := ValidateEmail(e); fe != nil {
			t.Errorf("ValidateEmail(%q) = %v", e, fe.Message)
		}
	}
	for _, e := range invalid {
		if ValidateEmail(e) == nil {
			t.Errorf("ValidateEmail(%q) accepted", e)
		}
	}
}
