package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

type mockProjectRepo struct {
	storage.ProjectRepository
	projects map[string]*models.Project
	err      error
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.projects[id], nil
}

type mockProjectStore struct{ repo *mockProjectRepo }

func (m *mockProjectStore) Projects() storage.ProjectRepository { return m.repo }

func TestRequireProjectMember(t *testing.T) {
	project := models.NewProject("demo", "owner")
	store := &mockProjectStore{repo: &mockProjectRepo{
		projects: map[string]*models.Project{project.ID: project},
	}}

	tests := []struct {
		name       string
		projectID  string
		userID     string
		repoErr    error
		wantStatus int
	}{
		{"member", project.ID, "owner", nil, http.StatusOK},
		{"non-member", project.ID, "stranger", nil, http.StatusForbidden},
		{"invalid id", "not-a-uuid", "owner", nil, http.StatusBadRequest},
		{"missing", "5f1d7c1e-2b4a-4c1e-9a0b-1c2d3e4f5a6b", "owner", nil, http.StatusNotFound},
		{"store error", project.ID, "owner", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store.repo.err = tc.repoErr

			var got *models.Project
			r := chi.NewRouter()
			r.With(RequireProjectMember(store)).Get("/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
				got = GetProject(r.Context())
			})

			req := httptest.NewRequest("GET", "/projects/"+tc.projectID, nil)
			req = req.WithContext(WithUser(req.Context(), tc.userID, ""))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK && (got == nil || got.ID != project.ID) {
				t.Errorf("project in context = %+v", got)
			}
		})
	}
}
