// Package usecase implements business logic orchestration for link issuance
// and token redemption.
package usecase

import (
	"context"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
)

// LedgerRepository is the persistence surface for token redemption state.
// Implementations must provide single-statement conditional writes; the
// redeemer relies on their atomicity, not on read-then-write.
type LedgerRepository interface {
	// CreateIfAbsent inserts the record, returning false if the reference
	// already exists.
	CreateIfAbsent(ctx context.Context, record *brokerDomain.LedgerRecord) (bool, error)

	// Get retrieves the record for a reference or ErrRecordNotFound.
	Get(ctx context.Context, reference string) (*brokerDomain.LedgerRecord, error)

	// RedeemOnce atomically flips used from false to true, returning
	// ErrAlreadyUsed when the transition was already made.
	RedeemOnce(ctx context.Context, reference string, usedAt time.Time) error

	// RecordAccess increments the audit download counter and returns the new
	// count.
	RecordAccess(ctx context.Context, reference string, accessedAt time.Time) (int64, error)
}

// InviteRepository is the batch-level issuance guard.
type InviteRepository interface {
	AlreadyIssued(ctx context.Context, batchID string) (bool, error)
	MarkIssued(ctx context.Context, batchID string, issuedAt time.Time) error
}

// IssuerUseCase mints capability links and reacts to completed uploads.
type IssuerUseCase interface {
	// Issue mints one link: reference, ledger record, encoded token,
	// rendered URL.
	Issue(ctx context.Context, input *brokerDomain.IssueLinkInput) (*brokerDomain.IssuedLink, error)

	// HandleUploadCompleted issues an audited download link for a freshly
	// uploaded log bundle and notifies the alerts team. Locations outside
	// the log bundle layout are ignored.
	HandleUploadCompleted(ctx context.Context, location string) error
}

// InviteUseCase performs batch upload-invite issuance with batch-level
// deduplication.
type InviteUseCase interface {
	IssueBatch(ctx context.Context, input *brokerDomain.InviteBatchInput) (*brokerDomain.InviteBatchOutput, error)
}

// RedeemerUseCase validates and redeems a presented token.
type RedeemerUseCase interface {
	// Redeem runs the redemption state machine and returns the rewrite
	// target on ALLOW, or one of the broker rejection errors.
	Redeem(ctx context.Context, input *brokerDomain.RedeemInput) (*brokerDomain.RedeemResult, error)
}
