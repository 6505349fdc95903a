// Package projects provides the project directory API endpoints.
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

// Response helpers (same pattern as auth)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeConflict         = "CONFLICT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

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

func jsonOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, dataResponse{Data: data})
}

func internalError(w http.ResponseWriter, action string, err error) {
	log.Printf("%s error: %v", action, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// ProjectResponse is a project summary.
type ProjectResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Users     []string      `json:"users"`
	Files     []models.File `json:"files"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// MemberResponse is a project member.
type MemberResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// DetailResponse is a project with its members and chat history.
type DetailResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Users     []*MemberResponse `json:"users"`
	Files     []models.File     `json:"files"`
	Messages  []*models.Message `json:"messages"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// Handler handles project endpoints.
type Handler struct {
	storage      storage.Storage
	historyLimit int
}

// NewHandler creates a project handler. historyLimit bounds the messages
// returned with a project; 0 returns the whole log.
func NewHandler(store storage.Storage, historyLimit int) *Handler {
	return &Handler{storage: store, historyLimit: historyLimit}
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Name string `json:"name"`
}

// AddMembersRequest is the request body for adding members.
type AddMembersRequest struct {
	Users []string `json:"users"`
}

// ReplaceFilesRequest is the request body for replacing the file set.
type ReplaceFilesRequest struct {
	Files []models.File `json:"files"`
}

// List returns the projects the requester is a member of.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.storage.Projects().ListForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		internalError(w, "list projects", err)
		return
	}

	resp := make([]*ProjectResponse, len(projects))
	for i, p := range projects {
		resp[i] = projectToResponse(p)
	}
	jsonOK(w, resp)
}

// Create creates a project owned by the requester.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if fields := ValidateName(req.Name); len(fields) > 0 {
		jsonValidationFailed(w, fields)
		return
	}

	ctx := r.Context()
	project := models.NewProject(req.Name, middleware.GetUserID(ctx))
	if err := h.storage.Projects().Create(ctx, project); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			jsonError(w, http.StatusConflict, errCodeConflict, "project name already exists")
			return
		}
		internalError(w, "create project", err)
		return
	}

	log.Printf("project created: %s (%s) by %s", project.Name, project.ID, middleware.GetEmail(ctx))
	jsonCreated(w, projectToResponse(project))
}

// Get returns the project loaded by RequireProjectMember with members and history.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project := middleware.GetProject(ctx)

	resp, err := h.detail(ctx, project)
	if err != nil {
		internalError(w, "get project", err)
		return
	}
	jsonOK(w, resp)
}

// AddMembers adds existing users to the project. Users already in it are left as is.
func (h *Handler) AddMembers(w http.ResponseWriter, r *http.Request) {
	var req AddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if fields := ValidateMemberIDs(req.Users); len(fields) > 0 {
		jsonValidationFailed(w, fields)
		return
	}

	ctx := r.Context()
	project := middleware.GetProject(ctx)

	var missing []FieldError
	for i, id := range req.Users {
		user, err := h.storage.Users().GetByID(ctx, id)
		if err != nil {
			internalError(w, "add members", err)
			return
		}
		if user == nil {
			missing = append(missing, FieldError{Field: fmt.Sprintf("users[%d]", i), Message: "user not found: " + id})
		}
	}
	if len(missing) > 0 {
		jsonValidationFailed(w, missing)
		return
	}

	if err := h.storage.Projects().AddMembers(ctx, project.ID, req.Users); err != nil {
		internalError(w, "add members", err)
		return
	}

	updated, err := h.reload(ctx, project.ID)
	if err != nil {
		internalError(w, "add members", err)
		return
	}

	log.Printf("project members added: %s +%d by %s", project.ID, len(req.Users), middleware.GetEmail(ctx))
	jsonOK(w, projectToResponse(updated))
}

// ReplaceFiles overwrites the project's file set.
func (h *Handler) ReplaceFiles(w http.ResponseWriter, r *http.Request) {
	var req ReplaceFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Files == nil {
		jsonValidationFailed(w, []FieldError{{Field: "files", Message: "files must be an array"}})
		return
	}
	if fields := ValidateFiles(req.Files); len(fields) > 0 {
		jsonValidationFailed(w, fields)
		return
	}

	files := make([]models.File, len(req.Files))
	for i, f := range req.Files {
		files[i] = models.File{
			Name:     strings.TrimSpace(f.Name),
			Content:  f.Content,
			Language: strings.TrimSpace(f.Language),
		}
	}

	ctx := r.Context()
	project := middleware.GetProject(ctx)
	if err := h.storage.Projects().ReplaceFiles(ctx, project.ID, files); err != nil {
		internalError(w, "replace files", err)
		return
	}

	updated, err := h.reload(ctx, project.ID)
	if err != nil {
		internalError(w, "replace files", err)
		return
	}
	jsonOK(w, projectToResponse(updated))
}

func (h *Handler) detail(ctx context.Context, project *models.Project) (*DetailResponse, error) {
	members, err := h.storage.Projects().GetMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	messages, err := h.storage.Messages().ListByProject(ctx, project.ID, h.historyLimit)
	if err != nil {
		return nil, err
	}

	resp := &DetailResponse{
		ID:        project.ID,
		Name:      project.Name,
		Users:     make([]*MemberResponse, len(members)),
		Files:     project.Files,
		Messages:  messages,
		CreatedAt: project.CreatedAt.Format(time.RFC3339),
		UpdatedAt: project.UpdatedAt.Format(time.RFC3339),
	}
	for i, u := range members {
		resp.Users[i] = &MemberResponse{ID: u.ID, Email: u.Email}
	}
	if resp.Files == nil {
		resp.Files = []models.File{}
	}
	if resp.Messages == nil {
		resp.Messages = []*models.Message{}
	}
	return resp, nil
}

// reload fetches the project after a mutation.
func (h *Handler) reload(ctx context.Context, id string) (*models.Project, error) {
	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s vanished", id)
	}
	return project, nil
}

func projectToResponse(p *models.Project) *ProjectResponse {
	files := p.Files
	if files == nil {
		files = []models.File{}
	}
	users := p.Members
	if users == nil {
		users = []string{}
	}
	return &ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Users:     users,
		Files:     files,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
