package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/ensemble/internal/server"
	"github.com/HendryAvila/ensemble/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Ensemble to an MCP host over stdio",
	Long: `Run Ensemble as an MCP server on stdin/stdout. The conversation runs
in-process; no "ensemble serve" is needed.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "ensemble": {
        "command": "ensemble",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting services: %w", err)
	}
	defer func() { _ = svc.Close() }()

	// Version check output goes to stderr; stdout is the transport.
	go checkForUpdates(ctx, cmd)

	seq := session.New(svc.local, nil, svc.journal, logger)
	defer seq.Wait()

	stdio := mcpserver.NewStdioServer(server.NewMCP(seq, svc.journal, svc.local))
	stdio.SetErrorLogger(logger.StdLogger())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
