package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsportal/linkbroker/internal/broker/domain"
)

// Rejection describes the response written to a client whose link redemption failed.
// The Reason code travels in the X-Error-Type header for machine consumption while
// Body carries a short human-readable description.
type Rejection struct {
	Status int
	Reason string
	Body   string
}

// Rejection reason codes emitted in the X-Error-Type header.
const (
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonMissingToken     = "missing_token"
	ReasonMissingParameter = "missing_parameter"
	ReasonInvalidToken     = "invalid_token"
	ReasonExpiredLink      = "expired_link"
	ReasonAlreadyUsed      = "already_used"
)

// RejectionFor maps a redemption error to its client-facing rejection.
// Store failures and reference-not-found both collapse into the invalid_token
// rejection so the response discloses nothing about why the token was refused.
func RejectionFor(err error) Rejection {
	switch {
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return Rejection{http.StatusMethodNotAllowed, ReasonMethodNotAllowed, "Method not allowed for this link"}
	case errors.Is(err, domain.ErrMissingParameter):
		return Rejection{http.StatusBadRequest, ReasonMissingParameter, "Malformed token parameters"}
	case errors.Is(err, domain.ErrExpiredLink):
		return Rejection{http.StatusForbidden, ReasonExpiredLink, "This link has expired"}
	case errors.Is(err, domain.ErrAlreadyUsed):
		return Rejection{http.StatusForbidden, ReasonAlreadyUsed, "This link has already been used"}
	default:
		return Rejection{http.StatusForbidden, ReasonInvalidToken, "Invalid token"}
	}
}

// MissingTokenRejection is the rejection for requests that carry no token at all.
func MissingTokenRejection() Rejection {
	return Rejection{http.StatusBadRequest, ReasonMissingToken, "Missing token parameter"}
}

// MethodRejection is the rejection for HTTP methods the edge never serves.
func MethodRejection() Rejection {
	return Rejection{http.StatusMethodNotAllowed, ReasonMethodNotAllowed, "Method not allowed"}
}

// RejectGin writes a rejection response. Rejections are never cacheable so a
// consumed or expired link cannot be replayed out of an intermediary cache.
func RejectGin(c *gin.Context, r Rejection) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Error-Type", r.Reason)
	c.String(r.Status, r.Body)
	c.Abort()
}
