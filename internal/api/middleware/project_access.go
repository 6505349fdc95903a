package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

// ProjectStore is the slice of storage needed for membership checks.
type ProjectStore interface {
	Projects() storage.ProjectRepository
}

// RequireProjectMember loads the {id} project and admits only its members.
// Must run after JWTAuth. The project is available via GetProject.
func RequireProjectMember(store ProjectStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if !models.ValidID(id) {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid project id")
				return
			}

			project, err := store.Projects().GetByID(r.Context(), id)
			if err != nil {
				log.Printf("project access error: get project %s: %v", id, err)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			if project == nil {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "project not found")
				return
			}

			userID := GetUserID(r.Context())
			if !project.HasMember(userID) {
				log.Printf("project access denied: user %s is not a member of %s", userID, id)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "not a project member")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey, project)))
		})
	}
}

// GetProject returns the project loaded by RequireProjectMember.
func GetProject(ctx context.Context) *models.Project {
	if v := ctx.Value(projectKey); v != nil {
		if p, ok := v.(*models.Project); ok {
			return p
		}
	}
	return nil
}
