package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

type mockUserRepository struct {
	users     []*models.User
	listError error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	return m.users, nil
}

func (m *mockUserRepository) ListExcept(ctx context.Context, userID string) ([]*models.User, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*models.User
	for _, u := range m.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

type mockStorage struct {
	storage.Storage
	users *mockUserRepository
}

func (m *mockStorage) Users() storage.UserRepository { return m.users }

func newTestHandler() (*Handler, *mockUserRepository) {
	users := &mockUserRepository{users: []*models.User{
		{ID: "u1", Email: "alice@example.com", PasswordHash: "secret-hash"},
		{ID: "u2", Email: "bob@example.com"},
		{ID: "u3", Email: "carol@example.com"},
	}}
	return NewHandler(&mockStorage{users: users}), users
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(middleware.WithUser(req.Context(), userID, ""))
}

func TestList_ExcludesRequester(t *testing.T) {
	h, _ := newTestHandler()
	w := httptest.NewRecorder()
	h.List(w, requestAs("u2"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Data []UserResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d users, want 2", len(resp.Data))
	}
	for _, u := range resp.Data {
		if u.ID == "u2" {
			t.Error("requester included in list")
		}
	}
}

func TestList_StoreError(t *testing.T) {
	h, users := newTestHandler()
	users.listError = errors.New("boom")

	w := httptest.NewRecorder()
	h.List(w, requestAs("u1"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetCurrentUser(t *testing.T) {
	h, _ := newTestHandler()

	w := httptest.NewRecorder()
	h.GetCurrentUser(w, requestAs("u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"id":"u1"`) || !strings.Contains(body, `"email":"alice@example.com"`) {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, "secret-hash") {
		t.Error("password hash leaked")
	}

	w = httptest.NewRecorder()
	h.GetCurrentUser(w, requestAs("deleted"))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", w.Code)
	}
}
