package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerUseCase "github.com/opsportal/linkbroker/internal/broker/usecase"
	"github.com/opsportal/linkbroker/internal/config"
	apperrors "github.com/opsportal/linkbroker/internal/errors"
	"github.com/opsportal/linkbroker/internal/httputil"
	"github.com/opsportal/linkbroker/internal/storage"
)

// uploadFanOutTimeout bounds the post-upload download-link issuance, which
// runs detached from the client request.
const uploadFanOutTimeout = 30 * time.Second

// EdgeHandler gates every request to a protected path. It redeems the
// presented token and, on success, serves the rewritten resource location
// from the object store.
type EdgeHandler struct {
	redeemerUseCase brokerUseCase.RedeemerUseCase
	issuerUseCase   brokerUseCase.IssuerUseCase
	store           storage.ObjectStore
	cfg             *config.Config
	logger          *slog.Logger
}

// NewEdgeHandler creates a new edge handler with required dependencies.
func NewEdgeHandler(
	redeemerUseCase brokerUseCase.RedeemerUseCase,
	issuerUseCase brokerUseCase.IssuerUseCase,
	store storage.ObjectStore,
	cfg *config.Config,
	logger *slog.Logger,
) *EdgeHandler {
	return &EdgeHandler{
		redeemerUseCase: redeemerUseCase,
		issuerUseCase:   issuerUseCase,
		store:           store,
		cfg:             cfg,
		logger:          logger,
	}
}

// Handle redeems the token carried in the query string and serves the
// protected resource. Uploads write the request body to the rewritten
// location; downloads stream the object back. Every failure short of a
// store I/O error is a structured rejection.
func (h *EdgeHandler) Handle(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost:
	default:
		httputil.RejectGin(c, httputil.MethodRejection())
		return
	}

	token := c.Query(h.cfg.TokenQueryParam)
	if token == "" {
		httputil.RejectGin(c, httputil.MissingTokenRejection())
		return
	}

	result, err := h.redeemerUseCase.Redeem(c.Request.Context(), &brokerDomain.RedeemInput{
		Method: c.Request.Method,
		Token:  token,
	})
	if err != nil {
		httputil.RejectGin(c, httputil.RejectionFor(err))
		return
	}

	switch result.Operation {
	case brokerDomain.OperationUpload:
		h.serveUpload(c, result)
	default:
		h.serveDownload(c, result)
	}
}

func (h *EdgeHandler) serveUpload(c *gin.Context, result *brokerDomain.RedeemResult) {
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.store.Upload(c.Request.Context(), result.Location, c.Request.Body, contentType); err != nil {
		h.logger.Error("upload write failed",
			slog.String("location", result.Location),
			slog.String("reference", result.Reference),
			slog.Any("error", err),
		)
		c.String(http.StatusInternalServerError, "Upload failed")
		return
	}

	h.logger.Info("upload stored",
		slog.String("location", result.Location),
		slog.String("reference", result.Reference),
	)

	// The download-link fan-out must not hold up the uploader's response.
	location := result.Location
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), uploadFanOutTimeout)
		defer cancel()
		if err := h.issuerUseCase.HandleUploadCompleted(ctx, location); err != nil {
			h.logger.Error("upload completion handling failed",
				slog.String("location", location),
				slog.Any("error", err),
			)
		}
	}()

	c.String(http.StatusOK, "Upload complete")
}

func (h *EdgeHandler) serveDownload(c *gin.Context, result *brokerDomain.RedeemResult) {
	body, contentType, err := h.store.Download(c.Request.Context(), result.Location)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		h.logger.Error("download read failed",
			slog.String("location", result.Location),
			slog.String("reference", result.Reference),
			slog.Any("error", err),
		)
		c.String(http.StatusInternalServerError, "Download failed")
		return
	}
	defer func() {
		_ = body.Close()
	}()

	h.logger.Info("download served",
		slog.String("location", result.Location),
		slog.String("reference", result.Reference),
		slog.Int64("download_count", result.DownloadCount),
	)

	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
