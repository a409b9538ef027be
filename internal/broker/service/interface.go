// Package service provides the capability token codec and the ledger
// reference generator used by the link issuer and the edge redeemer.
package service

import (
	"github.com/opsportal/linkbroker/internal/broker/domain"
)

// TokenCodec serializes a capability descriptor to and from the opaque,
// URL-safe token wire format.
type TokenCodec interface {
	// Encode serializes the capability. Deterministic: encoding the same
	// descriptor twice produces the same token.
	Encode(capability *domain.Capability) (string, error)

	// Decode parses a presented token back into a capability descriptor.
	// Decode success only proves the string is well-formed, not that the
	// system issued it.
	Decode(token string) (*domain.Capability, error)

	// Normalize reverts transport mangling (an extra percent-encoding pass,
	// stripped base64 padding) and returns the canonical raw token, the form
	// stored in the ledger and byte-compared at redemption time.
	Normalize(token string) string
}

// ReferenceGenerator builds ledger references that are both traceable (slug
// of a human identifier) and collision-resistant (random suffix).
type ReferenceGenerator interface {
	New(hint string) string
	Slugify(value string) string
}
