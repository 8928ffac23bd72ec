// Command riskmap loads climate risk asset CSVs and serves the decade map
// and the filterable, sortable asset table.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("riskmap failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "riskmap",
		Usage:   "Climate risk asset explorer",
		Version: version,
		Commands: []*cli.Command{
			cmdServe(),
			cmdQuery(),
			cmdValidate(),
			cmdPublish(),
		},
	}
}
