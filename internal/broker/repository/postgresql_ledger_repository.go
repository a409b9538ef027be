// Package repository implements broker persistence against PostgreSQL and
// MySQL. Redemption state transitions rely on single-statement conditional
// writes; there are no cross-key transactions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	apperrors "github.com/opsportal/linkbroker/internal/errors"
)

// PostgreSQLLedgerRepository implements LedgerRecord persistence for PostgreSQL.
type PostgreSQLLedgerRepository struct {
	db *sql.DB
}

// NewPostgreSQLLedgerRepository creates a new PostgreSQL ledger repository.
func NewPostgreSQLLedgerRepository(db *sql.DB) *PostgreSQLLedgerRepository {
	return &PostgreSQLLedgerRepository{db: db}
}

// CreateIfAbsent inserts a new ledger record unless one already exists for
// the reference. Returns true if a record was created, false on an existing
// reference (the idempotent issuance guard).
func (p *PostgreSQLLedgerRepository) CreateIfAbsent(
	ctx context.Context,
	record *brokerDomain.LedgerRecord,
) (bool, error) {
	query := `INSERT INTO ledger_records (reference, raw_token, aux, used, download_count, created_at)
			  VALUES ($1, $2, $3, false, 0, $4)
			  ON CONFLICT (reference) DO NOTHING`

	result, err := p.db.ExecContext(
		ctx,
		query,
		record.Reference,
		record.RawToken,
		record.Aux,
		record.CreatedAt,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to create ledger record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// Get retrieves a ledger record by reference. Returns ErrRecordNotFound if no
// record exists.
func (p *PostgreSQLLedgerRepository) Get(
	ctx context.Context,
	reference string,
) (*brokerDomain.LedgerRecord, error) {
	query := `SELECT reference, raw_token, aux, used, used_at, download_count, created_at
			  FROM ledger_records WHERE reference = $1`

	var record brokerDomain.LedgerRecord

	err := p.db.QueryRowContext(ctx, query, reference).Scan(
		&record.Reference,
		&record.RawToken,
		&record.Aux,
		&record.Used,
		&record.UsedAt,
		&record.DownloadCount,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, brokerDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get ledger record")
	}

	return &record, nil
}

// RedeemOnce transitions used from false to true in a single conditional
// update. Two concurrent attempts race safely: exactly one update matches,
// the other observes zero affected rows and gets ErrAlreadyUsed.
func (p *PostgreSQLLedgerRepository) RedeemOnce(
	ctx context.Context,
	reference string,
	usedAt time.Time,
) error {
	query := `UPDATE ledger_records SET used = true, used_at = $2
			  WHERE reference = $1 AND used = false`

	result, err := p.db.ExecContext(ctx, query, reference, usedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to redeem ledger record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return brokerDomain.ErrAlreadyUsed
	}
	return nil
}

// RecordAccess increments the download counter and stamps the access time.
// Audit-only multiplicity tracking: never conditional, never blocks reuse.
func (p *PostgreSQLLedgerRepository) RecordAccess(
	ctx context.Context,
	reference string,
	accessedAt time.Time,
) (int64, error) {
	query := `UPDATE ledger_records
			  SET download_count = download_count + 1, used = true, used_at = $2
			  WHERE reference = $1
			  RETURNING download_count`

	var count int64
	err := p.db.QueryRowContext(ctx, query, reference, accessedAt).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, brokerDomain.ErrRecordNotFound
		}
		return 0, apperrors.Wrap(err, "failed to record access")
	}
	return count, nil
}
