package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

const (
	MinEmailLength = 5
	MaxEmailLength = 50
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Handler handles account and session endpoints.
type Handler struct {
	storage        storage.Storage
	tokens         *TokenService
	lockoutTracker *LockoutTracker
}

// NewHandler creates a new auth handler.
func NewHandler(store storage.Storage, tokens *TokenService, lockout *LockoutTracker) *Handler {
	return &Handler{
		storage:        store,
		tokens:         tokens,
		lockoutTracker: lockout,
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonValidationFailed(w http.ResponseWriter, fields []FieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    errCodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}})
}

// Error codes
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeUnauthorized     = "UNAUTHORIZED"
	errCodeConflict         = "CONFLICT"
	errCodeAccountLocked    = "ACCOUNT_LOCKED"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeInternalError    = "INTERNAL_ERROR"
)

// Credentials is the request body for register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on successful register and login.
type SessionResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      *models.User `json:"user"`
}

// ValidateEmail checks the email format and length policy.
func ValidateEmail(email string) *FieldError {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return &FieldError{Field: "email", Message: "email is required"}
	case len(email) < MinEmailLength:
		return &FieldError{Field: "email", Message: "email must be at least 5 characters"}
	case len(email) > MaxEmailLength:
		return &FieldError{Field: "email", Message: "email must be at most 50 characters"}
	case !emailRegex.MatchString(email):
		return &FieldError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

func validateCredentials(c *Credentials) []FieldError {
	var fields []FieldError
	if fe := ValidateEmail(c.Email); fe != nil {
		fields = append(fields, *fe)
	}
	var pwErr *PasswordValidationError
	if err := ValidatePassword(c.Password); errors.As(err, &pwErr) {
		for _, msg := range pwErr.Messages {
			fields = append(fields, FieldError{Field: "password", Message: msg})
		}
	}
	return fields
}

// Register creates an account and returns a session for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if fields := validateCredentials(&req); len(fields) > 0 {
		jsonValidationFailed(w, fields)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("register error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	user := models.NewUser(req.Email)
	user.ID = uuid.New().String()
	user.PasswordHash = hash

	ctx := r.Context()
	if err := h.storage.Users().Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			jsonError(w, http.StatusConflict, errCodeConflict, "email already registered")
			return
		}
		log.Printf("register error: create user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Printf("register error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("register success: user %s", user.Email)
	writeJSON(w, http.StatusCreated, dataResponse{Data: h.session(token, user)})
}

// Login handles user login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "email and password required")
		return
	}

	if h.lockoutTracker.IsLocked(email) {
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		log.Printf("login blocked: account %s locked for %v", email, h.lockoutTracker.Remaining(email))
		jsonError(w, http.StatusTooManyRequests, errCodeAccountLocked, "account temporarily locked due to too many failed attempts")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByEmail(ctx, email)
	if err != nil {
		log.Printf("login error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		h.lockoutTracker.RecordFailure(email)
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		log.Printf("login failed: %s", email)
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	h.lockoutTracker.ClearFailures(email)

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Printf("login error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	log.Printf("login success: user %s", email)
	writeJSON(w, http.StatusOK, dataResponse{Data: h.session(token, user)})
}

// Logout revokes the bearer token the request was made with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := StripBearer(r.Header.Get("Authorization"))
	if token == "" {
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "missing authorization header")
		return
	}

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		log.Printf("logout error: revoke token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.AuthTokensRevoked.Inc()
	log.Printf("logout success")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(token string, user *models.User) *SessionResponse {
	return &SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: h.tokens.TTLSeconds(),
		User:      user,
	}
}
