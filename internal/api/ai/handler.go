// Package ai provides the direct generation endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/models"
)

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

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

var errEmptyReply = errors.New("empty reply")

// MaxPromptLength bounds the prompt query parameter.
const MaxPromptLength = 8000

// Generator produces a structured reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.StructuredReply, error)
}

// Handler serves one-shot generations outside of a room.
type Handler struct {
	gen     Generator
	timeout time.Duration
}

// NewHandler creates a handler. A nil gen answers every request with 502.
func NewHandler(gen Generator, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handler{gen: gen, timeout: timeout}
}

// Generate handles GET /api/v1/ai/generate?prompt=.
// Failures are returned as a reply carrying only an error, with status 502.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "prompt is required"}})
		return
	}
	if len(prompt) > MaxPromptLength {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "BAD_REQUEST", Message: "prompt is too long"}})
		return
	}

	if h.gen == nil {
		writeJSON(w, http.StatusBadGateway, dataResponse{Data: &models.StructuredReply{Error: "assistant is not configured"}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reply, err := h.gen.Generate(ctx, prompt)
	if err == nil && reply == nil {
		err = errEmptyReply
	}
	if err != nil {
		log.Printf("ai generate: user %s: %v", middleware.GetUserID(r.Context()), err)
		writeJSON(w, http.StatusBadGateway, dataResponse{Data: &models.StructuredReply{Error: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: reply})
}
