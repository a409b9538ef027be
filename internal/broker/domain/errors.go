package domain

import (
	"fmt"

	"github.com/opsportal/linkbroker/internal/errors"
)

// Broker rejection and failure errors. Decode failures, unknown references
// and integrity mismatches are deliberately collapsed into ErrInvalidToken so
// callers cannot distinguish them.
var (
	// ErrMissingParameter indicates a required capability field was absent.
	ErrMissingParameter = errors.Wrap(errors.ErrInvalidInput, "missing parameter")

	// ErrInvalidToken indicates the token could not be decoded, its reference
	// is unknown, or it does not byte-match the issued raw token.
	ErrInvalidToken = errors.Wrap(errors.ErrForbidden, "invalid token")

	// ErrExpiredLink indicates the capability's expiry is in the past.
	ErrExpiredLink = errors.Wrap(errors.ErrForbidden, "link has expired")

	// ErrAlreadyUsed indicates a single-use capability was already redeemed.
	ErrAlreadyUsed = errors.Wrap(errors.ErrForbidden, "link has already been used")

	// ErrMethodNotAllowed indicates the HTTP method does not match the
	// capability's operation class.
	ErrMethodNotAllowed = errors.Wrap(errors.ErrForbidden, "method not allowed")

	// ErrStoreUnavailable indicates the ledger store failed during lookup or
	// redemption. Presented to clients as an invalid-token class rejection;
	// logged distinctly.
	ErrStoreUnavailable = errors.Wrap(errors.ErrUnavailable, "ledger store unavailable")

	// ErrRecordNotFound indicates no ledger record exists for a reference.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "ledger record not found")

	// ErrReferenceExhausted indicates issuance failed twice on reference collision.
	ErrReferenceExhausted = errors.Wrap(errors.ErrConflict, "reference collision retry exhausted")
)

// MissingFieldError reports which required capability field was absent from a
// decoded token. Unwraps to ErrMissingParameter.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingParameter
}
