package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testLedgerRecord() *brokerDomain.LedgerRecord {
	return &brokerDomain.LedgerRecord{
		Reference: "alert-1-ref",
		RawToken:  "dG9rZW4=",
		Aux:       "ALERT 1",
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgreSQLLedgerRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("Created", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)
		record := testLedgerRecord()

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_records`)).
			WithArgs(record.Reference, record.RawToken, record.Aux, record.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := repo.CreateIfAbsent(ctx, record)
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExistingReference", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)
		record := testLedgerRecord()

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_records`)).
			WithArgs(record.Reference, record.RawToken, record.Aux, record.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := repo.CreateIfAbsent(ctx, record)
		assert.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExecError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)
		record := testLedgerRecord()

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ledger_records`)).
			WillReturnError(errors.New("connection refused"))

		created, err := repo.CreateIfAbsent(ctx, record)
		assert.Error(t, err)
		assert.False(t, created)
	})
}

func TestPostgreSQLLedgerRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)
		createdAt := time.Now().UTC()

		rows := sqlmock.NewRows([]string{
			"reference", "raw_token", "aux", "used", "used_at", "download_count", "created_at",
		}).AddRow("alert-1-ref", "dG9rZW4=", "ALERT 1", false, nil, int64(0), createdAt)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT reference, raw_token, aux, used, used_at, download_count, created_at`)).
			WithArgs("alert-1-ref").
			WillReturnRows(rows)

		record, err := repo.Get(ctx, "alert-1-ref")
		assert.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "alert-1-ref", record.Reference)
		assert.Equal(t, "dG9rZW4=", record.RawToken)
		assert.Equal(t, "ALERT 1", record.Aux)
		assert.False(t, record.Used)
		assert.Nil(t, record.UsedAt)
		assert.Zero(t, record.DownloadCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT reference, raw_token, aux, used, used_at, download_count, created_at`)).
			WithArgs("missing-ref").
			WillReturnError(sql.ErrNoRows)

		record, err := repo.Get(ctx, "missing-ref")
		assert.ErrorIs(t, err, brokerDomain.ErrRecordNotFound)
		assert.Nil(t, record)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT reference, raw_token, aux, used, used_at, download_count, created_at`)).
			WithArgs("alert-1-ref").
			WillReturnError(errors.New("connection refused"))

		record, err := repo.Get(ctx, "alert-1-ref")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, brokerDomain.ErrRecordNotFound)
		assert.Nil(t, record)
	})
}

func TestPostgreSQLLedgerRepository_RedeemOnce(t *testing.T) {
	ctx := context.Background()
	usedAt := time.Now().UTC()

	t.Run("Redeemed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE ledger_records SET used = true, used_at = $2`)).
			WithArgs("alert-1-ref", usedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RedeemOnce(ctx, "alert-1-ref", usedAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyUsed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE ledger_records SET used = true, used_at = $2`)).
			WithArgs("alert-1-ref", usedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RedeemOnce(ctx, "alert-1-ref", usedAt)
		assert.ErrorIs(t, err, brokerDomain.ErrAlreadyUsed)
	})

	t.Run("ExecError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE ledger_records SET used = true, used_at = $2`)).
			WillReturnError(errors.New("connection reset"))

		err := repo.RedeemOnce(ctx, "alert-1-ref", usedAt)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, brokerDomain.ErrAlreadyUsed)
	})
}

func TestPostgreSQLLedgerRepository_RecordAccess(t *testing.T) {
	ctx := context.Background()
	accessedAt := time.Now().UTC()

	t.Run("IncrementsCounter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SET download_count = download_count + 1`)).
			WithArgs("alert-1-ref", accessedAt).
			WillReturnRows(sqlmock.NewRows([]string{"download_count"}).AddRow(int64(4)))

		count, err := repo.RecordAccess(ctx, "alert-1-ref", accessedAt)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SET download_count = download_count + 1`)).
			WithArgs("missing-ref", accessedAt).
			WillReturnError(sql.ErrNoRows)

		count, err := repo.RecordAccess(ctx, "missing-ref", accessedAt)
		assert.ErrorIs(t, err, brokerDomain.ErrRecordNotFound)
		assert.Zero(t, count)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLLedgerRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SET download_count = download_count + 1`)).
			WillReturnError(errors.New("connection reset"))

		count, err := repo.RecordAccess(ctx, "alert-1-ref", accessedAt)
		assert.Error(t, err)
		assert.Zero(t, count)
	})
}
