// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
)

// IssuedLinkResponse represents a freshly minted capability link in API responses.
type IssuedLinkResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	Reference string    `json:"reference"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MapIssuedLink converts a domain issued link to an API response.
func MapIssuedLink(link *brokerDomain.IssuedLink) IssuedLinkResponse {
	return IssuedLinkResponse{
		URL:       link.URL,
		Token:     link.Token,
		Reference: link.Reference,
		ExpiresAt: link.ExpiresAt,
	}
}

// InviteBatchResponse reports the outcome of a batch invite issuance.
type InviteBatchResponse struct {
	AlertReference string `json:"alert_reference"`
	AlreadyIssued  bool   `json:"already_issued"`
	LinksGenerated int    `json:"links_generated"`
}

// MapInviteBatch converts a domain batch outcome to an API response.
func MapInviteBatch(alertReference string, output *brokerDomain.InviteBatchOutput) InviteBatchResponse {
	return InviteBatchResponse{
		AlertReference: alertReference,
		AlreadyIssued:  output.AlreadyIssued,
		LinksGenerated: output.LinksGenerated,
	}
}
