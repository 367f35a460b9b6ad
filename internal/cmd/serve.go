package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/ensemble/internal/server"
	"github.com/HendryAvila/ensemble/internal/updater"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the Ensemble HTTP API: the chat and document streams, document
persistence with task creation, task completion and text-to-speech.

Examples:
  # Listen on the configured address (default :3000)
  ensemble serve

  # Listen elsewhere
  ensemble serve --addr 127.0.0.1:8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :3000)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	if !svc.speech.Available() {
		logger.Info("no speech API key configured, /api/tts is disabled")
	}
	go checkForUpdates(ctx, cmd)

	api := server.NewAPI(svc.local.Chat, svc.local.Document, svc.local.Complete, svc.speech, logger)
	return api.Serve(ctx, cfg.Server.Addr)
}

// checkForUpdates prints a notice to stderr when a newer release exists.
// Network failures are ignored.
func checkForUpdates(ctx context.Context, cmd *cobra.Command) {
	result := updater.New().CheckVersion(ctx, server.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: ensemble update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}
