package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/opsportal/linkbroker/internal/errors"
)

// PostgreSQLInviteRepository implements invite batch dedup persistence for
// PostgreSQL. Presence of a row alone signals "already issued".
type PostgreSQLInviteRepository struct {
	db *sql.DB
}

// NewPostgreSQLInviteRepository creates a new PostgreSQL invite repository.
func NewPostgreSQLInviteRepository(db *sql.DB) *PostgreSQLInviteRepository {
	return &PostgreSQLInviteRepository{db: db}
}

// AlreadyIssued reports whether a batch identifier has been marked.
func (p *PostgreSQLInviteRepository) AlreadyIssued(ctx context.Context, batchID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM invite_batches WHERE batch_id = $1)`

	var exists bool
	if err := p.db.QueryRowContext(ctx, query, batchID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check invite batch")
	}
	return exists, nil
}

// MarkIssued records a batch identifier. A concurrent identical invocation
// is a harmless duplicate, so conflicts are swallowed.
func (p *PostgreSQLInviteRepository) MarkIssued(ctx context.Context, batchID string, issuedAt time.Time) error {
	query := `INSERT INTO invite_batches (batch_id, issued_at) VALUES ($1, $2)
			  ON CONFLICT (batch_id) DO NOTHING`

	if _, err := p.db.ExecContext(ctx, query, batchID, issuedAt); err != nil {
		return apperrors.Wrap(err, "failed to mark invite batch")
	}
	return nil
}
