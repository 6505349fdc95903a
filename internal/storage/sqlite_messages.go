package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/devroom/internal/models"
)

// sqliteMessageRepo implements MessageRepository using SQLite.
type sqliteMessageRepo struct {
	db *sql.DB
}

// Append writes one message record at the end of its project's log.
func (r *sqliteMessageRepo) Append(ctx context.Context, msg *models.Message) error {
	if msg.ProjectID == "" {
		return fmt.Errorf("append message: project id is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("encode message payload: %w", err)
	}

	query := `
		INSERT INTO messages (id, project_id, sender_id, sender_email, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		msg.ID,
		msg.ProjectID,
		msg.Sender.ID,
		msg.Sender.Email,
		msg.Payload.Kind.String(),
		string(body),
		msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByProject returns the project's log in append order.
func (r *sqliteMessageRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, project_id, sender_id, sender_email, body, created_at FROM (
			SELECT seq, id, project_id, sender_id, sender_email, body, created_at
			FROM messages WHERE project_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := r.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg := &models.Message{}
		var body string
		err := rows.Scan(
			&msg.ID,
			&msg.ProjectID,
			&msg.Sender.ID,
			&msg.Sender.Email,
			&body,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &msg.Payload); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", msg.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
