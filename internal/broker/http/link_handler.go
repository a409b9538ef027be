// Package http provides HTTP handlers for link issuance and redemption.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsportal/linkbroker/internal/broker/http/dto"
	brokerUseCase "github.com/opsportal/linkbroker/internal/broker/usecase"
	"github.com/opsportal/linkbroker/internal/httputil"
	customValidation "github.com/opsportal/linkbroker/internal/validation"
)

// LinkHandler handles HTTP requests for ad-hoc link issuance.
type LinkHandler struct {
	issuerUseCase brokerUseCase.IssuerUseCase
	logger        *slog.Logger
}

// NewLinkHandler creates a new link handler with required dependencies.
func NewLinkHandler(issuerUseCase brokerUseCase.IssuerUseCase, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		issuerUseCase: issuerUseCase,
		logger:        logger,
	}
}

// IssueHandler mints a single capability link.
// POST /v1/links
// Returns 201 Created with the rendered URL, raw token, reference, and expiry.
func (h *LinkHandler) IssueHandler(c *gin.Context) {
	var req dto.IssueLinkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	link, err := h.issuerUseCase.Issue(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapIssuedLink(link))
}
