package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opsportal/linkbroker/internal/app"
	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	"github.com/opsportal/linkbroker/internal/config"
)

// operatorSpec is the JSON shape accepted by the --operators flag.
type operatorSpec struct {
	OperatorID string   `json:"operator_id"`
	Emails     []string `json:"emails"`
}

// RunSendInvites issues a deduplicated batch of upload invites for an alert.
// A batch already issued for the same alert reference mints nothing new.
//
// Requirements: Database must be migrated and accessible.
func RunSendInvites(
	ctx context.Context,
	alertReference string,
	operatorsJSON string,
	format string,
	io IOTuple,
) error {
	var specs []operatorSpec
	if err := json.Unmarshal([]byte(operatorsJSON), &specs); err != nil {
		return fmt.Errorf("failed to parse operators JSON: %w", err)
	}
	if len(specs) == 0 {
		return fmt.Errorf("operators must contain at least one entry")
	}

	operators := make([]brokerDomain.OperatorInvite, 0, len(specs))
	for _, spec := range specs {
		if spec.OperatorID == "" || len(spec.Emails) == 0 {
			return fmt.Errorf("each operator needs an operator_id and at least one email")
		}
		operators = append(operators, brokerDomain.OperatorInvite{
			OperatorID: spec.OperatorID,
			Emails:     spec.Emails,
		})
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("sending invite batch",
		slog.String("alert_reference", alertReference),
		slog.Int("operator_count", len(operators)),
	)

	defer closeContainer(container, logger)

	inviteUseCase, err := container.InviteUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize invite use case: %w", err)
	}

	output, err := inviteUseCase.IssueBatch(ctx, &brokerDomain.InviteBatchInput{
		AlertReference: alertReference,
		Operators:      operators,
	})
	if err != nil {
		return fmt.Errorf("failed to issue invite batch: %w", err)
	}

	if format == "json" {
		return outputSendInvitesJSON(io, alertReference, output)
	}
	outputSendInvitesText(io, alertReference, output)

	logger.Info("invite batch completed",
		slog.String("alert_reference", alertReference),
		slog.Bool("already_issued", output.AlreadyIssued),
		slog.Int("links_generated", output.LinksGenerated),
	)

	return nil
}

// outputSendInvitesText outputs the batch result in human-readable text format.
func outputSendInvitesText(io IOTuple, alertReference string, output *brokerDomain.InviteBatchOutput) {
	if output.AlreadyIssued {
		fmt.Fprintf(io.Writer, "Invites for %s were already issued, nothing sent\n", alertReference)
		return
	}
	fmt.Fprintf(io.Writer, "Issued %d upload link(s) for %s\n", output.LinksGenerated, alertReference)
}

// outputSendInvitesJSON outputs the batch result in JSON format for machine consumption.
func outputSendInvitesJSON(io IOTuple, alertReference string, output *brokerDomain.InviteBatchOutput) error {
	result := map[string]interface{}{
		"alert_reference": alertReference,
		"already_issued":  output.AlreadyIssued,
		"links_generated": output.LinksGenerated,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(io.Writer, string(jsonBytes))
	return nil
}
