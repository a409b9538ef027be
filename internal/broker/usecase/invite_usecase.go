package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerService "github.com/opsportal/linkbroker/internal/broker/service"
	"github.com/opsportal/linkbroker/internal/config"
	"github.com/opsportal/linkbroker/internal/notify"
	"github.com/opsportal/linkbroker/internal/storage"
)

// inviteUseCase implements InviteUseCase.
type inviteUseCase struct {
	config     *config.Config
	issuer     IssuerUseCase
	inviteRepo InviteRepository
	references brokerService.ReferenceGenerator
	store      storage.ObjectStore
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewInviteUseCase creates a new InviteUseCase with the provided dependencies.
func NewInviteUseCase(
	cfg *config.Config,
	issuer IssuerUseCase,
	inviteRepo InviteRepository,
	references brokerService.ReferenceGenerator,
	store storage.ObjectStore,
	notifier notify.Notifier,
	logger *slog.Logger,
) InviteUseCase {
	return &inviteUseCase{
		config:     cfg,
		issuer:     issuer,
		inviteRepo: inviteRepo,
		references: references,
		store:      store,
		notifier:   notifier,
		logger:     logger,
	}
}

// mintedInvite pairs an operator invite with its minted link.
type mintedInvite struct {
	operator brokerDomain.OperatorInvite
	link     *brokerDomain.IssuedLink
}

// IssueBatch mints one upload link per operator for an alert and sends the
// invites.
//
// The batch guard makes the whole operation idempotent: an alert that was
// already invited mints nothing and reports AlreadyIssued. The guard is
// best-effort check-then-mark - a concurrent identical invocation can race
// into a harmless duplicate batch, acceptable because batches are triggered
// by operator action, not a hot path.
//
// Order matters: every link is minted before the batch is marked, so a
// partial failure leaves the batch unmarked and retryable. Notification
// dispatch is fire-and-forget; a failed send is logged and never rolls back
// issuance.
func (u *inviteUseCase) IssueBatch(
	ctx context.Context,
	input *brokerDomain.InviteBatchInput,
) (*brokerDomain.InviteBatchOutput, error) {
	issued, err := u.inviteRepo.AlreadyIssued(ctx, input.AlertReference)
	if err != nil {
		return nil, err
	}
	if issued {
		u.logger.Info("invite batch already issued",
			slog.String("alert", input.AlertReference))
		return &brokerDomain.InviteBatchOutput{AlreadyIssued: true}, nil
	}

	slug := u.references.Slugify(input.AlertReference)

	// Prefix preparation carries the original alert reference as metadata so
	// the slug can be reversed later. Failure is logged, not fatal.
	prefix := fmt.Sprintf("logs/%s/", slug)
	if err := u.store.PreparePrefix(ctx, prefix, map[string]string{
		"original-alert-ref": input.AlertReference,
	}); err != nil {
		u.logger.Error("failed to prepare storage prefix",
			slog.String("prefix", prefix),
			slog.Any("error", err))
	}

	// Mint all links before marking the batch. Any minting failure is a hard
	// failure for the whole batch.
	var mu sync.Mutex
	minted := make([]mintedInvite, 0, len(input.Operators))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, operator := range input.Operators {
		group.Go(func() error {
			location := fmt.Sprintf("/received/logs/%s/CBC_%s_%s.zip", slug, slug, operator.OperatorID)

			link, err := u.issuer.Issue(groupCtx, &brokerDomain.IssueLinkInput{
				Operation:     brokerDomain.OperationUpload,
				Location:      location,
				TTL:           u.config.UploadLinkTTL,
				ReferenceHint: input.AlertReference,
				Aux: map[string]string{
					brokerDomain.AuxOriginalAlert: input.AlertReference,
					brokerDomain.AuxOperator:      operator.OperatorID,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to mint link for operator %s: %w", operator.OperatorID, err)
			}

			mu.Lock()
			minted = append(minted, mintedInvite{operator: operator, link: link})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	uploadSite := fmt.Sprintf("https://%s/upload-logs.html", u.config.EdgeDomain)
	for _, invite := range minted {
		for _, email := range invite.operator.Emails {
			message := &notify.Message{
				EmailAddress: email,
				TemplateID:   u.config.NotifyUploadTemplateID,
				Personalisation: map[string]string{
					"broadcastRef": input.AlertReference,
					"MNO":          invite.operator.OperatorID,
					"uploadSite":   uploadSite,
					"oneTimeLink":  invite.link.Token,
				},
			}
			if err := u.notifier.Send(ctx, message); err != nil {
				u.logger.Error("failed to send upload invite",
					slog.String("email", email),
					slog.String("operator", invite.operator.OperatorID),
					slog.Any("error", err))
			}
		}
	}

	if err := u.inviteRepo.MarkIssued(ctx, input.AlertReference, time.Now().UTC()); err != nil {
		return nil, err
	}

	u.logger.Info("invite batch issued",
		slog.String("alert", input.AlertReference),
		slog.Int("links_generated", len(minted)))
	return &brokerDomain.InviteBatchOutput{LinksGenerated: len(minted)}, nil
}
