package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/opsportal/linkbroker/internal/errors"
)

// MySQLInviteRepository implements invite batch dedup persistence for MySQL.
type MySQLInviteRepository struct {
	db *sql.DB
}

// NewMySQLInviteRepository creates a new MySQL invite repository.
func NewMySQLInviteRepository(db *sql.DB) *MySQLInviteRepository {
	return &MySQLInviteRepository{db: db}
}

// AlreadyIssued reports whether a batch identifier has been marked.
func (m *MySQLInviteRepository) AlreadyIssued(ctx context.Context, batchID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM invite_batches WHERE batch_id = ?)`

	var exists bool
	if err := m.db.QueryRowContext(ctx, query, batchID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check invite batch")
	}
	return exists, nil
}

// MarkIssued records a batch identifier, swallowing duplicate-key conflicts.
func (m *MySQLInviteRepository) MarkIssued(ctx context.Context, batchID string, issuedAt time.Time) error {
	query := `INSERT IGNORE INTO invite_batches (batch_id, issued_at) VALUES (?, ?)`

	if _, err := m.db.ExecContext(ctx, query, batchID, issuedAt); err != nil {
		return apperrors.Wrap(err, "failed to mark invite batch")
	}
	return nil
}
