package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/devroom/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	files, err := encodeFiles(project.Files)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create project: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, files_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, project.ID, project.Name, files, project.CreatedAt, project.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert project %s: %w", project.Name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	for _, userID := range project.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO project_users (project_id, user_id, added_at) VALUES (?, ?, ?)",
			project.ID, userID, project.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert project member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return r.get(ctx, "id", id)
}

func (r *sqliteProjectRepo) GetByName(ctx context.Context, name string) (*models.Project, error) {
	return r.get(ctx, "name", models.NormalizeProjectName(name))
}

func (r *sqliteProjectRepo) get(ctx context.Context, column, value string) (*models.Project, error) {
	query := `
		SELECT id, name, files_json, created_at, updated_at
		FROM projects WHERE ` + column + ` = ?
	`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by %s: %w", column, err)
	}

	members, err := r.memberIDs(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.Members = members
	return project, nil
}

func (r *sqliteProjectRepo) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.files_json, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN project_users pu ON p.id = pu.project_id
		WHERE pu.user_id = ?
		ORDER BY p.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get user projects: %w", err)
	}

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get user projects: %w", err)
	}

	// Members are loaded after the cursor is closed; the pool has a single connection.
	for _, p := range projects {
		if p.Members, err = r.memberIDs(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (r *sqliteProjectRepo) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_users WHERE project_id = ? AND user_id = ?",
		projectID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check project member: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteProjectRepo) AddMembers(ctx context.Context, projectID string, userIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add members: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, "UPDATE projects SET updated_at = ? WHERE id = ?", now, projectID)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("add members to %s: %w", projectID, ErrNotFound)
	}

	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO project_users (project_id, user_id, added_at) VALUES (?, ?, ?)",
			projectID, userID, now,
		); err != nil {
			return fmt.Errorf("add project member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add members: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetMembers(ctx context.Context, projectID string) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.created_at, u.updated_at
		FROM users u
		INNER JOIN project_users pu ON u.id = pu.user_id
		WHERE pu.project_id = ?
		ORDER BY pu.added_at, u.email
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project members: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *sqliteProjectRepo) ReplaceFiles(ctx context.Context, projectID string, files []models.File) error {
	encoded, err := encodeFiles(files)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE projects SET files_json = ?, updated_at = ? WHERE id = ?",
		encoded, time.Now().UTC(), projectID,
	)
	if err != nil {
		return fmt.Errorf("replace project files: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("replace files of %s: %w", projectID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) memberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM project_users WHERE project_id = ? ORDER BY added_at, user_id",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("get project member ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanProject(row rowScanner) (*models.Project, error) {
	project := &models.Project{}
	var files string
	if err := row.Scan(&project.ID, &project.Name, &files, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(files), &project.Files); err != nil {
		return nil, fmt.Errorf("decode files of project %s: %w", project.ID, err)
	}
	if project.Files == nil {
		project.Files = []models.File{}
	}
	return project, nil
}

func encodeFiles(files []models.File) (string, error) {
	if files == nil {
		files = []models.File{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encode files: %w", err)
	}
	return string(data), nil
}
