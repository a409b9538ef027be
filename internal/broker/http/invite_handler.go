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

// InviteHandler handles HTTP requests for batch upload-invite issuance.
type InviteHandler struct {
	inviteUseCase brokerUseCase.InviteUseCase
	logger        *slog.Logger
}

// NewInviteHandler creates a new invite handler with required dependencies.
func NewInviteHandler(inviteUseCase brokerUseCase.InviteUseCase, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		inviteUseCase: inviteUseCase,
		logger:        logger,
	}
}

// IssueBatchHandler mints one upload link per operator in the batch and sends
// the invites. A batch that was already issued for the same alert reference
// returns 200 OK with no new links; a fresh batch returns 201 Created.
// POST /v1/invites
func (h *InviteHandler) IssueBatchHandler(c *gin.Context) {
	var req dto.InviteBatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.inviteUseCase.IssueBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusCreated
	if output.AlreadyIssued {
		status = http.StatusOK
	}
	c.JSON(status, dto.MapInviteBatch(req.AlertReference, output))
}
