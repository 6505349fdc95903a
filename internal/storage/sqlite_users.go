package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/devroom/internal/models"
)

const userColumns = "id, email, password_hash, created_at, updated_at"

type sqliteUserRepo struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, models.NormalizeEmail(user.Email), user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", models.NormalizeEmail(email))
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) List(ctx context.Context) ([]*models.User, error) {
	return r.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
}

func (r *sqliteUserRepo) ListExcept(ctx context.Context, userID string) ([]*models.User, error) {
	return r.query(ctx, "SELECT "+userColumns+" FROM users WHERE id != ? ORDER BY email", userID)
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *sqliteUserRepo) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
