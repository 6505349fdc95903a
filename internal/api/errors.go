package api

import "net/http"

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes shared by every handler package.
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeAccountLocked    = "ACCOUNT_LOCKED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Router-level errors
var (
	ErrNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "resource not found",
		Status:  http.StatusNotFound,
	}

	ErrMethodNotAllowed = &Error{
		Code:    ErrCodeMethodNotAllowed,
		Message: "method not allowed",
		Status:  http.StatusMethodNotAllowed,
	}
)
