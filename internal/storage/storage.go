// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/devroom/internal/models"
)

var (
	// ErrDuplicate is returned when a unique field (email, project name) is already taken.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrNotFound is returned by mutations that target a missing row.
	ErrNotFound = errors.New("not found")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Messages() MessageRepository
}

// UserRepository defines operations for user accounts.
// Lookups return nil, nil when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListExcept(ctx context.Context, userID string) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for projects, their member sets and file sets.
// Every mutation is a single atomic store operation.
type ProjectRepository interface {
	// Create inserts the project and its initial member set.
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByName(ctx context.Context, name string) (*models.Project, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Project, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	// AddMembers adds users to the member set. Existing members are left as is.
	AddMembers(ctx context.Context, projectID string, userIDs []string) error
	GetMembers(ctx context.Context, projectID string) ([]*models.User, error)
	// ReplaceFiles overwrites the project's current file set.
	ReplaceFiles(ctx context.Context, projectID string, files []models.File) error
}

// MessageRepository defines the append-only chat log of each project.
type MessageRepository interface {
	Append(ctx context.Context, msg *models.Message) error
	// ListByProject returns the most recent limit messages in log order.
	// A limit of 0 returns the whole log.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error)
}
