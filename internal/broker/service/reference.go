package service

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// nonAlphanumeric matches runs of characters replaced by the slug separator.
var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

type referenceGenerator struct{}

// NewReferenceGenerator creates the default ledger reference generator.
func NewReferenceGenerator() ReferenceGenerator {
	return &referenceGenerator{}
}

// Slugify replaces runs of non-alphanumeric characters with a single
// underscore and trims leading/trailing separators.
func (g *referenceGenerator) Slugify(value string) string {
	return strings.Trim(nonAlphanumeric.ReplaceAllString(value, "_"), "_")
}

// New builds a reference from the slug of a caller-supplied hint and a random
// unique suffix, keeping references traceable and collision-resistant. The
// suffix is random, not a secret: the full raw token is the bearer credential.
func (g *referenceGenerator) New(hint string) string {
	id := uuid.New()
	suffix := hex.EncodeToString(id[:])
	slug := g.Slugify(hint)
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
