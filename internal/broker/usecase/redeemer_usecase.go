package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerService "github.com/opsportal/linkbroker/internal/broker/service"
)

// redeemerUseCase implements RedeemerUseCase. Instances are stateless; all
// coordination between concurrent redemptions happens through the ledger's
// conditional writes.
type redeemerUseCase struct {
	ledgerRepo LedgerRepository
	codec      brokerService.TokenCodec
	logger     *slog.Logger
}

// NewRedeemerUseCase creates a new RedeemerUseCase with the provided dependencies.
func NewRedeemerUseCase(
	ledgerRepo LedgerRepository,
	codec brokerService.TokenCodec,
	logger *slog.Logger,
) RedeemerUseCase {
	return &redeemerUseCase{
		ledgerRepo: ledgerRepo,
		codec:      codec,
		logger:     logger,
	}
}

// Redeem runs the redemption state machine:
//
//  1. Normalize and decode the presented token
//  2. Check the HTTP method against the capability's operation class
//  3. Check expiry - before any store call, so stale links cost nothing
//  4. Ledger lookup by reference - absence is indistinguishable from a
//     garbled reference
//  5. Integrity check: the normalized presented token must byte-equal the
//     stored raw token
//  6. Single-use capabilities redeem via the conditional write; audited
//     capabilities record the access and are never blocked
//
// Store failures at any step reject (fail closed) as ErrStoreUnavailable and
// are logged with full context; the HTTP layer collapses them into the
// invalid-token class for the client.
func (u *redeemerUseCase) Redeem(
	ctx context.Context,
	input *brokerDomain.RedeemInput,
) (*brokerDomain.RedeemResult, error) {
	raw := u.codec.Normalize(input.Token)

	capability, err := u.codec.Decode(raw)
	if err != nil {
		var missing *brokerDomain.MissingFieldError
		if errors.As(err, &missing) {
			u.logger.Warn("token missing required field", slog.String("field", missing.Field))
			return nil, err
		}
		u.logger.Warn("token decode failed", slog.Any("error", err))
		return nil, err
	}

	if !capability.Operation.AllowsMethod(input.Method) {
		u.logger.Warn("method does not match operation class",
			slog.String("method", input.Method),
			slog.String("operation", string(capability.Operation)))
		return nil, brokerDomain.ErrMethodNotAllowed
	}

	if capability.Expired(time.Now()) {
		u.logger.Warn("expired token presented",
			slog.String("reference", capability.Reference),
			slog.Time("expired_at", capability.ExpiresAt))
		return nil, brokerDomain.ErrExpiredLink
	}

	record, err := u.ledgerRepo.Get(ctx, capability.Reference)
	if err != nil {
		if errors.Is(err, brokerDomain.ErrRecordNotFound) {
			u.logger.Warn("no ledger record for reference",
				slog.String("reference", capability.Reference))
			return nil, brokerDomain.ErrInvalidToken
		}
		u.logger.Error("ledger lookup failed",
			slog.String("reference", capability.Reference),
			slog.Any("error", err))
		return nil, brokerDomain.ErrStoreUnavailable
	}

	if record.RawToken != raw {
		u.logger.Warn("presented token does not match issued raw token",
			slog.String("reference", capability.Reference))
		return nil, brokerDomain.ErrInvalidToken
	}

	result := &brokerDomain.RedeemResult{
		Location:  capability.Location,
		Reference: capability.Reference,
		Operation: capability.Operation,
		Aux:       capability.Aux,
	}

	now := time.Now().UTC()
	if capability.Operation.SingleUse() {
		if err := u.ledgerRepo.RedeemOnce(ctx, capability.Reference, now); err != nil {
			if errors.Is(err, brokerDomain.ErrAlreadyUsed) {
				u.logger.Warn("single-use token already redeemed",
					slog.String("reference", capability.Reference))
				return nil, brokerDomain.ErrAlreadyUsed
			}
			u.logger.Error("redemption write failed",
				slog.String("reference", capability.Reference),
				slog.Any("error", err))
			return nil, brokerDomain.ErrStoreUnavailable
		}
	} else {
		count, err := u.ledgerRepo.RecordAccess(ctx, capability.Reference, now)
		if err != nil {
			u.logger.Error("access audit write failed",
				slog.String("reference", capability.Reference),
				slog.Any("error", err))
			return nil, brokerDomain.ErrStoreUnavailable
		}
		result.DownloadCount = count
	}

	u.logger.Info("token redeemed",
		slog.String("reference", capability.Reference),
		slog.String("operation", string(capability.Operation)),
		slog.String("location", capability.Location),
		slog.Int64("download_count", result.DownloadCount))
	return result, nil
}
