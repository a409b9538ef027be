package domain

import "time"

// LedgerRecord is the persisted redemption state for a single issued token.
// RawToken holds the exact encoded string expected at redemption time; the
// byte comparison against the presented token defeats forged tokens that
// reuse a valid reference with altered fields.
type LedgerRecord struct {
	Reference     string
	RawToken      string
	Aux           string
	Used          bool
	UsedAt        *time.Time
	DownloadCount int64
	CreatedAt     time.Time
}

// InviteBatch marks an entire multi-recipient issuance as already performed.
// Presence alone signals "already issued".
type InviteBatch struct {
	BatchID  string
	IssuedAt time.Time
}
