// Package users provides user directory API endpoints.
package users

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

// Error codes
const (
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// UserResponse is a user without sensitive fields.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Handler handles user directory endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new user handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// List returns every user except the requester, for picking collaborators.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.storage.Users().ListExcept(ctx, middleware.GetUserID(ctx))
	if err != nil {
		log.Printf("list users error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*UserResponse, len(users))
	for i, u := range users {
		resp[i] = userToResponse(u)
	}
	jsonOK(w, resp)
}

// GetCurrentUser returns the requester's profile.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.storage.Users().GetByID(ctx, userID)
	if err != nil {
		log.Printf("get current user error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	jsonOK(w, userToResponse(user))
}

// userToResponse converts a User to UserResponse.
func userToResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}
