package usecase

import (
	"context"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	"github.com/opsportal/linkbroker/internal/metrics"
)

// issuerUseCaseWithMetrics decorates IssuerUseCase with metrics instrumentation.
type issuerUseCaseWithMetrics struct {
	next    IssuerUseCase
	metrics metrics.BusinessMetrics
}

// NewIssuerUseCaseWithMetrics wraps an IssuerUseCase with metrics recording.
func NewIssuerUseCaseWithMetrics(useCase IssuerUseCase, m metrics.BusinessMetrics) IssuerUseCase {
	return &issuerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Issue records metrics for link issuance operations.
func (i *issuerUseCaseWithMetrics) Issue(
	ctx context.Context,
	input *brokerDomain.IssueLinkInput,
) (*brokerDomain.IssuedLink, error) {
	start := time.Now()
	link, err := i.next.Issue(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, "issuer", "link_issue", status)
	i.metrics.RecordDuration(ctx, "issuer", "link_issue", time.Since(start), status)

	return link, err
}

// HandleUploadCompleted records metrics for the download-link fan-out.
func (i *issuerUseCaseWithMetrics) HandleUploadCompleted(ctx context.Context, location string) error {
	start := time.Now()
	err := i.next.HandleUploadCompleted(ctx, location)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, "issuer", "upload_completed", status)
	i.metrics.RecordDuration(ctx, "issuer", "upload_completed", time.Since(start), status)

	return err
}

// redeemerUseCaseWithMetrics decorates RedeemerUseCase with metrics instrumentation.
type redeemerUseCaseWithMetrics struct {
	next    RedeemerUseCase
	metrics metrics.BusinessMetrics
}

// NewRedeemerUseCaseWithMetrics wraps a RedeemerUseCase with metrics recording.
func NewRedeemerUseCaseWithMetrics(useCase RedeemerUseCase, m metrics.BusinessMetrics) RedeemerUseCase {
	return &redeemerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Redeem records metrics for token redemption operations.
func (r *redeemerUseCaseWithMetrics) Redeem(
	ctx context.Context,
	input *brokerDomain.RedeemInput,
) (*brokerDomain.RedeemResult, error) {
	start := time.Now()
	result, err := r.next.Redeem(ctx, input)

	status := "success"
	if err != nil {
		status = "rejected"
	}

	r.metrics.RecordOperation(ctx, "redeemer", "token_redeem", status)
	r.metrics.RecordDuration(ctx, "redeemer", "token_redeem", time.Since(start), status)

	return result, err
}
