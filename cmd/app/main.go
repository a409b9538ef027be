// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/opsportal/linkbroker/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "linkbroker",
		Usage:   "Self-service secure link broker",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "issue-link",
				Usage: "Mint a single capability link",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "operation",
						Aliases: []string{"o"},
						Value:   "upload",
						Usage:   "Operation class: upload or download",
					},
					&cli.StringFlag{
						Name:     "location",
						Aliases:  []string{"l"},
						Required: true,
						Usage:    "Resource location the link grants access to (e.g., /received/x.csr)",
					},
					&cli.IntFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Value:   0,
						Usage:   "Link lifetime in seconds (0 uses the operation-class default)",
					},
					&cli.StringFlag{
						Name:    "reference-hint",
						Aliases: []string{"r"},
						Usage:   "Human identifier slugged into the ledger reference",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunIssueLink(
						ctx,
						cmd.String("operation"),
						cmd.String("location"),
						cmd.Int("ttl"),
						cmd.String("reference-hint"),
						cmd.String("format"),
						commands.DefaultIO(),
					)
				},
			},
			{
				Name:  "send-invites",
				Usage: "Issue a deduplicated batch of upload invites for an alert",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "alert",
						Aliases:  []string{"a"},
						Required: true,
						Usage:    "Alert reference deduplicating the batch",
					},
					&cli.StringFlag{
						Name:     "operators",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    `JSON array of operators: [{"operator_id":"MNO1","emails":["a@b.c"]}]`,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSendInvites(
						ctx,
						cmd.String("alert"),
						cmd.String("operators"),
						cmd.String("format"),
						commands.DefaultIO(),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
