// Package domain defines the core entities of the secure link broker: the
// capability carried inside a token, the ledger record tracking its
// redemption state, and the invite batch guard.
package domain

import (
	"net/http"
	"time"
)

// ExpiryLayout is the wire format for capability expiry timestamps.
// Minute resolution, always UTC.
const ExpiryLayout = "200601021504"

// Well-known auxiliary field names carried for downstream personalisation.
const (
	// AuxOriginalAlert is the original human-readable alert identifier,
	// before slugging.
	AuxOriginalAlert = "original_alert"
	// AuxOperator is the mobile network operator identifier.
	AuxOperator = "mno"
)

// Operation is the class of access a capability grants.
type Operation string

const (
	// OperationUpload grants a single-use write to the resource location.
	OperationUpload Operation = "upload"
	// OperationDownload grants repeated, audited reads of the resource location.
	OperationDownload Operation = "download"
)

// ParseOperation maps a wire value to an Operation.
func ParseOperation(value string) (Operation, bool) {
	switch Operation(value) {
	case OperationUpload:
		return OperationUpload, true
	case OperationDownload:
		return OperationDownload, true
	}
	return "", false
}

// SingleUse reports whether redemption is exclusive (exactly once) for this
// operation class. Download capabilities are audited but never blocked.
func (o Operation) SingleUse() bool {
	return o == OperationUpload
}

// AllowsMethod reports whether an HTTP method belongs to this operation's
// method class: write methods for uploads, read methods for downloads.
func (o Operation) AllowsMethod(method string) bool {
	switch o {
	case OperationUpload:
		return method == http.MethodPut || method == http.MethodPost
	case OperationDownload:
		return method == http.MethodGet || method == http.MethodHead
	}
	return false
}

// Capability is the descriptor carried inside an opaque token. Location is
// used verbatim to rewrite the redeemed request, so it must match the
// downstream storage layout exactly.
type Capability struct {
	Location  string
	Operation Operation
	ExpiresAt time.Time
	Reference string
	// Aux carries optional non-security-relevant fields (e.g. the original
	// human-readable alert identifier) for downstream personalisation.
	Aux map[string]string
}

// Expired reports whether the capability's expiry is in the past.
func (c *Capability) Expired(now time.Time) bool {
	return now.UTC().After(c.ExpiresAt)
}
