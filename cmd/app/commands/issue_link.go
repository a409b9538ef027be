package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsportal/linkbroker/internal/app"
	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	"github.com/opsportal/linkbroker/internal/config"
)

// RunIssueLink mints a single capability link from the command line.
// Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunIssueLink(
	ctx context.Context,
	operation string,
	location string,
	ttlSeconds int,
	referenceHint string,
	format string,
	io IOTuple,
) error {
	op, ok := brokerDomain.ParseOperation(operation)
	if !ok {
		return fmt.Errorf("invalid operation: %s (valid options: upload, download)", operation)
	}
	if ttlSeconds < 0 {
		return fmt.Errorf("ttl must be a positive number, got: %d", ttlSeconds)
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("issuing link",
		slog.String("operation", string(op)),
		slog.String("location", location),
	)

	defer closeContainer(container, logger)

	issuerUseCase, err := container.IssuerUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize issuer use case: %w", err)
	}

	link, err := issuerUseCase.Issue(ctx, &brokerDomain.IssueLinkInput{
		Operation:     op,
		Location:      location,
		TTL:           time.Duration(ttlSeconds) * time.Second,
		ReferenceHint: referenceHint,
	})
	if err != nil {
		return fmt.Errorf("failed to issue link: %w", err)
	}

	if format == "json" {
		return outputIssueLinkJSON(io, link)
	}
	outputIssueLinkText(io, link)

	logger.Info("link issued",
		slog.String("reference", link.Reference),
		slog.Time("expires_at", link.ExpiresAt),
	)

	return nil
}

// outputIssueLinkText outputs the issued link in human-readable text format.
func outputIssueLinkText(io IOTuple, link *brokerDomain.IssuedLink) {
	fmt.Fprintf(io.Writer, "URL:       %s\n", link.URL)
	fmt.Fprintf(io.Writer, "Token:     %s\n", link.Token)
	fmt.Fprintf(io.Writer, "Reference: %s\n", link.Reference)
	fmt.Fprintf(io.Writer, "Expires:   %s\n", link.ExpiresAt.Format(time.RFC3339))
}

// outputIssueLinkJSON outputs the issued link in JSON format for machine consumption.
func outputIssueLinkJSON(io IOTuple, link *brokerDomain.IssuedLink) error {
	result := map[string]interface{}{
		"url":        link.URL,
		"token":      link.Token,
		"reference":  link.Reference,
		"expires_at": link.ExpiresAt.Format(time.RFC3339),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(io.Writer, string(jsonBytes))
	return nil
}
