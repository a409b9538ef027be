package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerService "github.com/opsportal/linkbroker/internal/broker/service"
	"github.com/opsportal/linkbroker/internal/config"
	"github.com/opsportal/linkbroker/internal/notify"
)

// logBundlePattern matches the outer shape of the log bundle layout written
// by upload capabilities: /received/logs/<alert>/<filename>. The filename is
// checked against CBC_<alert>_<operator>.zip in code so alert slugs
// containing underscores cannot bleed into the operator segment.
var logBundlePattern = regexp.MustCompile(
	`^/received/logs/([A-Za-z0-9_-]+)/([^/]+)$`,
)

// parseBundleLocation extracts the alert slug and operator identifier from a
// log bundle location, or reports that the location is not a log bundle.
func parseBundleLocation(location string) (alert, operator string, ok bool) {
	match := logBundlePattern.FindStringSubmatch(location)
	if match == nil {
		return "", "", false
	}
	alert = match[1]

	filename := match[2]
	prefix := "CBC_" + alert + "_"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, ".zip") {
		return "", "", false
	}
	operator = strings.TrimSuffix(strings.TrimPrefix(filename, prefix), ".zip")
	if operator == "" || strings.Contains(operator, ".") {
		return "", "", false
	}
	return alert, operator, true
}

// issuerUseCase implements IssuerUseCase.
type issuerUseCase struct {
	config     *config.Config
	ledgerRepo LedgerRepository
	codec      brokerService.TokenCodec
	references brokerService.ReferenceGenerator
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewIssuerUseCase creates a new IssuerUseCase with the provided dependencies.
func NewIssuerUseCase(
	cfg *config.Config,
	ledgerRepo LedgerRepository,
	codec brokerService.TokenCodec,
	references brokerService.ReferenceGenerator,
	notifier notify.Notifier,
	logger *slog.Logger,
) IssuerUseCase {
	return &issuerUseCase{
		config:     cfg,
		ledgerRepo: ledgerRepo,
		codec:      codec,
		references: references,
		notifier:   notifier,
		logger:     logger,
	}
}

// Issue mints a capability link.
//
// This method:
// 1. Generates a traceable, collision-resistant ledger reference
// 2. Computes the expiry at minute resolution (the wire format's precision),
//    falling back to the configured per-operation TTL when none is given
// 3. Encodes the capability - the encoded string is the stored raw token
// 4. Persists the ledger record via CreateIfAbsent
// 5. On a reference collision, regenerates the suffix and retries exactly once
// 6. Renders the final link with the token as a single query parameter
//
// Issuance has no side effect beyond the single ledger write; delivering the
// link to its recipient is the caller's concern.
func (u *issuerUseCase) Issue(
	ctx context.Context,
	input *brokerDomain.IssueLinkInput,
) (*brokerDomain.IssuedLink, error) {
	ttl := input.TTL
	if ttl <= 0 {
		switch input.Operation {
		case brokerDomain.OperationDownload:
			ttl = u.config.DownloadLinkTTL
		default:
			ttl = u.config.UploadLinkTTL
		}
	}
	expiresAt := time.Now().UTC().Add(ttl).Truncate(time.Minute)

	// One collision retry; a second collision is an issuance failure.
	for attempt := 0; attempt < 2; attempt++ {
		reference := u.references.New(input.ReferenceHint)

		capability := &brokerDomain.Capability{
			Location:  input.Location,
			Operation: input.Operation,
			ExpiresAt: expiresAt,
			Reference: reference,
			Aux:       input.Aux,
		}

		token, err := u.codec.Encode(capability)
		if err != nil {
			return nil, err
		}

		record := &brokerDomain.LedgerRecord{
			Reference: reference,
			RawToken:  token,
			Aux:       input.Aux[brokerDomain.AuxOriginalAlert],
			CreatedAt: time.Now().UTC(),
		}

		created, err := u.ledgerRepo.CreateIfAbsent(ctx, record)
		if err != nil {
			return nil, err
		}
		if !created {
			u.logger.Warn("ledger reference collision, regenerating",
				slog.String("reference", reference))
			continue
		}

		return &brokerDomain.IssuedLink{
			URL:       u.renderLink(token),
			Token:     token,
			Reference: reference,
			ExpiresAt: expiresAt,
		}, nil
	}

	return nil, brokerDomain.ErrReferenceExhausted
}

// HandleUploadCompleted issues a download link for an uploaded log bundle
// and notifies the alerts team. Fire-and-forget collaborator failures are
// logged, not propagated: the upload already succeeded.
func (u *issuerUseCase) HandleUploadCompleted(ctx context.Context, location string) error {
	alert, operator, ok := parseBundleLocation(location)
	if !ok {
		return nil
	}

	link, err := u.Issue(ctx, &brokerDomain.IssueLinkInput{
		Operation:     brokerDomain.OperationDownload,
		Location:      location,
		TTL:           u.config.DownloadLinkTTL,
		ReferenceHint: alert,
		Aux: map[string]string{
			brokerDomain.AuxOriginalAlert: alert,
			brokerDomain.AuxOperator:      operator,
		},
	})
	if err != nil {
		return err
	}

	downloadSite := fmt.Sprintf("https://%s/download.html", u.config.EdgeDomain)
	for _, email := range u.config.AlertsTeamRecipients() {
		message := &notify.Message{
			EmailAddress: email,
			TemplateID:   u.config.NotifyDownloadTemplateID,
			Personalisation: map[string]string{
				"broadcastRef": alert,
				"MNO":          operator,
				"downloadSite": downloadSite,
				"downloadLink": link.Token,
			},
		}
		if err := u.notifier.Send(ctx, message); err != nil {
			u.logger.Error("failed to send download notification",
				slog.String("email", email),
				slog.String("alert", alert),
				slog.Any("error", err))
		}
	}

	u.logger.Info("download link issued for uploaded bundle",
		slog.String("alert", alert),
		slog.String("operator", operator),
		slog.String("reference", link.Reference))
	return nil
}

// renderLink embeds the token as a single query parameter on the fixed base
// URL.
func (u *issuerUseCase) renderLink(token string) string {
	return fmt.Sprintf(
		"https://%s%s?%s=%s",
		u.config.EdgeDomain,
		u.config.EdgePath,
		u.config.TokenQueryParam,
		url.QueryEscape(token),
	)
}
