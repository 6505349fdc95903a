// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/devroom/pkg/config"
)

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler manages health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewHandler creates a new health handler.
func NewHandler() *Handler {
	return &Handler{timeout: 5 * time.Second}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Health reports that the process is up, with its version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: config.Version})
}

// Live is the liveness probe.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "live"})
}

// Ready is the readiness probe. All registered checks run concurrently and the
// endpoint answers 200 only if every one passes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make([]string, len(checkers))
	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			if err := checker.Check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	failed := g.Wait() != nil

	resp := HealthResponse{Status: "ready", Checks: make(map[string]string, len(checkers))}
	for i, checker := range checkers {
		resp.Checks[checker.Name()] = results[i]
	}

	if failed {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
