package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	apperrors "github.com/opsportal/linkbroker/internal/errors"
)

// MySQLLedgerRepository implements LedgerRecord persistence for MySQL.
type MySQLLedgerRepository struct {
	db *sql.DB
}

// NewMySQLLedgerRepository creates a new MySQL ledger repository.
func NewMySQLLedgerRepository(db *sql.DB) *MySQLLedgerRepository {
	return &MySQLLedgerRepository{db: db}
}

// CreateIfAbsent inserts a new ledger record unless one already exists for
// the reference. Returns true if a record was created.
func (m *MySQLLedgerRepository) CreateIfAbsent(
	ctx context.Context,
	record *brokerDomain.LedgerRecord,
) (bool, error) {
	query := `INSERT IGNORE INTO ledger_records (reference, raw_token, aux, used, download_count, created_at)
			  VALUES (?, ?, ?, false, 0, ?)`

	result, err := m.db.ExecContext(
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
func (m *MySQLLedgerRepository) Get(
	ctx context.Context,
	reference string,
) (*brokerDomain.LedgerRecord, error) {
	query := `SELECT reference, raw_token, aux, used, used_at, download_count, created_at
			  FROM ledger_records WHERE reference = ?`

	var record brokerDomain.LedgerRecord

	err := m.db.QueryRowContext(ctx, query, reference).Scan(
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
// update. Zero affected rows means another redemption won the race.
func (m *MySQLLedgerRepository) RedeemOnce(
	ctx context.Context,
	reference string,
	usedAt time.Time,
) error {
	query := `UPDATE ledger_records SET used = true, used_at = ?
			  WHERE reference = ? AND used = false`

	result, err := m.db.ExecContext(ctx, query, usedAt, reference)
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
// Assigning through LAST_INSERT_ID makes the statement result carry the new
// count, so concurrent increments each report their own value.
func (m *MySQLLedgerRepository) RecordAccess(
	ctx context.Context,
	reference string,
	accessedAt time.Time,
) (int64, error) {
	query := `UPDATE ledger_records
			  SET download_count = LAST_INSERT_ID(download_count + 1), used = true, used_at = ?
			  WHERE reference = ?`

	result, err := m.db.ExecContext(ctx, query, accessedAt, reference)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to record access")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return 0, brokerDomain.ErrRecordNotFound
	}

	count, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read download count")
	}
	return count, nil
}
