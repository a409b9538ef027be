package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerUseCase "github.com/opsportal/linkbroker/internal/broker/usecase"
	"github.com/opsportal/linkbroker/internal/testutil"
)

// Integration tests run against local test databases; set
// TEST_POSTGRES_DSN / TEST_MYSQL_DSN if they differ from the defaults
// and opt in with TEST_DB_INTEGRATION=1.
func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DB_INTEGRATION") == "" {
		t.Skip("set TEST_DB_INTEGRATION=1 to run database integration tests")
	}
}

func TestPostgreSQLLedgerRepository_Integration(t *testing.T) {
	requireIntegration(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLLedgerRepository(db)
	ctx := context.Background()

	record := &brokerDomain.LedgerRecord{
		Reference: "alert-1-abc123",
		RawToken:  "dG9rZW4=",
		Aux:       "ALERT 1",
		CreatedAt: time.Now().UTC(),
	}

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		created, err := repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
		assert.True(t, created)

		// Second create with the same reference is a no-op.
		created, err = repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
		assert.False(t, created)

		read, err := repo.Get(ctx, record.Reference)
		require.NoError(t, err)
		assert.Equal(t, record.Reference, read.Reference)
		assert.Equal(t, record.RawToken, read.RawToken)
		assert.Equal(t, record.Aux, read.Aux)
		assert.False(t, read.Used)
		assert.Nil(t, read.UsedAt)
		assert.Zero(t, read.DownloadCount)
		assert.WithinDuration(t, record.CreatedAt, read.CreatedAt, time.Second)
	})

	t.Run("GetMissing", func(t *testing.T) {
		read, err := repo.Get(ctx, "no-such-reference")
		assert.ErrorIs(t, err, brokerDomain.ErrRecordNotFound)
		assert.Nil(t, read)
	})

	t.Run("RedeemOnceIsSingleUse", func(t *testing.T) {
		now := time.Now().UTC()

		err := repo.RedeemOnce(ctx, record.Reference, now)
		require.NoError(t, err)

		err = repo.RedeemOnce(ctx, record.Reference, now)
		assert.ErrorIs(t, err, brokerDomain.ErrAlreadyUsed)

		read, err := repo.Get(ctx, record.Reference)
		require.NoError(t, err)
		assert.True(t, read.Used)
		require.NotNil(t, read.UsedAt)
		assert.WithinDuration(t, now, *read.UsedAt, time.Second)
	})

	t.Run("RecordAccessIncrements", func(t *testing.T) {
		download := &brokerDomain.LedgerRecord{
			Reference: "alert-1-download",
			RawToken:  "ZG93bmxvYWQ=",
			CreatedAt: time.Now().UTC(),
		}
		created, err := repo.CreateIfAbsent(ctx, download)
		require.NoError(t, err)
		require.True(t, created)

		for expected := int64(1); expected <= 3; expected++ {
			count, err := repo.RecordAccess(ctx, download.Reference, time.Now().UTC())
			require.NoError(t, err)
			assert.Equal(t, expected, count)
		}
	})

	t.Run("ConcurrentRedeemAdmitsExactlyOne", func(t *testing.T) {
		assertConcurrentRedeemAdmitsExactlyOne(t, repo, "alert-1-concurrent")
	})

	t.Run("ConcurrentRecordAccessCountsAreDistinct", func(t *testing.T) {
		assertConcurrentAccessCountsAreDistinct(t, repo, "alert-1-concurrent-dl")
	})

	t.Run("LongAuxRoundTrip", func(t *testing.T) {
		long := &brokerDomain.LedgerRecord{
			Reference: "alert-1-long-aux",
			RawToken:  "dG9rZW4=",
			Aux:       strings.Repeat("Broadcast Alert ", 64),
			CreatedAt: time.Now().UTC(),
		}
		created, err := repo.CreateIfAbsent(ctx, long)
		require.NoError(t, err)
		require.True(t, created)

		read, err := repo.Get(ctx, long.Reference)
		require.NoError(t, err)
		assert.Equal(t, long.Aux, read.Aux)
	})
}

// assertConcurrentRedeemAdmitsExactlyOne races several redemptions of the
// same single-use reference and requires that exactly one wins while the
// rest observe the already-used outcome.
func assertConcurrentRedeemAdmitsExactlyOne(t *testing.T, repo brokerUseCase.LedgerRepository, reference string) {
	t.Helper()
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &brokerDomain.LedgerRecord{
		Reference: reference,
		RawToken:  "dG9rZW4=",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, created)

	const redeemers = 8
	start := make(chan struct{})
	results := make(chan error, redeemers)

	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- repo.RedeemOnce(ctx, reference, time.Now().UTC())
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var redeemed, alreadyUsed int
	for err := range results {
		switch {
		case err == nil:
			redeemed++
		case errors.Is(err, brokerDomain.ErrAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}
	assert.Equal(t, 1, redeemed)
	assert.Equal(t, redeemers-1, alreadyUsed)
}

// assertConcurrentAccessCountsAreDistinct races several download audits of
// the same reference and requires every returned count to be unique.
func assertConcurrentAccessCountsAreDistinct(t *testing.T, repo brokerUseCase.LedgerRepository, reference string) {
	t.Helper()
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &brokerDomain.LedgerRecord{
		Reference: reference,
		RawToken:  "ZG93bmxvYWQ=",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, created)

	const downloads = 8
	start := make(chan struct{})
	counts := make(chan int64, downloads)

	var wg sync.WaitGroup
	for i := 0; i < downloads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			count, err := repo.RecordAccess(ctx, reference, time.Now().UTC())
			assert.NoError(t, err)
			counts <- count
		}()
	}
	close(start)
	wg.Wait()
	close(counts)

	seen := make(map[int64]bool, downloads)
	for count := range counts {
		assert.False(t, seen[count], "duplicate download count %d", count)
		seen[count] = true
	}
	assert.Len(t, seen, downloads)
}

func TestPostgreSQLInviteRepository_Integration(t *testing.T) {
	requireIntegration(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLInviteRepository(db)
	ctx := context.Background()

	issued, err := repo.AlreadyIssued(ctx, "ALERT 1")
	require.NoError(t, err)
	assert.False(t, issued)

	err = repo.MarkIssued(ctx, "ALERT 1", time.Now().UTC())
	require.NoError(t, err)

	// Marking twice is a harmless duplicate.
	err = repo.MarkIssued(ctx, "ALERT 1", time.Now().UTC())
	require.NoError(t, err)

	issued, err = repo.AlreadyIssued(ctx, "ALERT 1")
	require.NoError(t, err)
	assert.True(t, issued)
}

func TestMySQLLedgerRepository_Integration(t *testing.T) {
	requireIntegration(t)

	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLLedgerRepository(db)
	ctx := context.Background()

	record := &brokerDomain.LedgerRecord{
		Reference: "alert-1-abc123",
		RawToken:  "dG9rZW4=",
		Aux:       "ALERT 1",
		CreatedAt: time.Now().UTC(),
	}

	created, err := repo.CreateIfAbsent(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)

	err = repo.RedeemOnce(ctx, record.Reference, time.Now().UTC())
	require.NoError(t, err)

	err = repo.RedeemOnce(ctx, record.Reference, time.Now().UTC())
	assert.ErrorIs(t, err, brokerDomain.ErrAlreadyUsed)

	t.Run("ConcurrentRedeemAdmitsExactlyOne", func(t *testing.T) {
		assertConcurrentRedeemAdmitsExactlyOne(t, repo, "alert-1-concurrent")
	})

	t.Run("ConcurrentRecordAccessCountsAreDistinct", func(t *testing.T) {
		assertConcurrentAccessCountsAreDistinct(t, repo, "alert-1-concurrent-dl")
	})
}
