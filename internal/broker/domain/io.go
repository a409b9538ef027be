package domain

import "time"

// IssueLinkInput carries the parameters for minting a single capability link.
type IssueLinkInput struct {
	Operation Operation
	Location  string
	TTL       time.Duration
	// ReferenceHint is a human identifier slugged into the ledger reference
	// so references stay traceable.
	ReferenceHint string
	Aux           map[string]string
}

// IssuedLink is the result of minting a capability link.
type IssuedLink struct {
	URL       string
	Token     string
	Reference string
	ExpiresAt time.Time
}

// OperatorInvite identifies one operator and its recipient addresses within
// an invite batch.
type OperatorInvite struct {
	OperatorID string
	Emails     []string
}

// InviteBatchInput carries the parameters for a multi-recipient upload
// invite issuance, deduplicated by alert reference.
type InviteBatchInput struct {
	AlertReference string
	Operators      []OperatorInvite
}

// InviteBatchOutput reports the outcome of a batch issuance. AlreadyIssued
// means the batch was previously sent and no new links were minted.
type InviteBatchOutput struct {
	AlreadyIssued  bool
	LinksGenerated int
}

// RedeemInput is the per-request input to the edge redeemer: the HTTP method
// and the token exactly as extracted from the query string.
type RedeemInput struct {
	Method string
	Token  string
}

// RedeemResult is the ALLOW outcome of a redemption: the request is
// rewritten to Location.
type RedeemResult struct {
	Location      string
	Reference     string
	Operation     Operation
	Aux           map[string]string
	DownloadCount int64
}
