package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/ensemble/internal/client"
	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/HendryAvila/ensemble/internal/session"
	"github.com/HendryAvila/ensemble/internal/speech"
	"github.com/HendryAvila/ensemble/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running Ensemble server",
	Long: `Open the terminal chat client against a running "ensemble serve".

Keys:
  enter    send the message
  tab      switch between the input and the task list
  enter    (in the task list) mark the selected task done
  ctrl+s   read the last reply aloud
  esc      quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("url", "", "server URL (default http://localhost:3000)")
	_ = viper.BindPFlag("server.url", chatCmd.Flags().Lookup("url"))
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	api := client.New(cfg.Server.URL)
	if err := api.Healthy(ctx); err != nil {
		return fmt.Errorf("ensemble server at %s is not reachable (start it with \"ensemble serve\"): %w", cfg.Server.URL, err)
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	seq := session.New(api, nil, j, logger)
	defer seq.Wait()

	player := speech.NewPlayer(api, cfg.Speech.PlayerCommand(), logger)
	defer player.Wait()

	return tui.Run(ctx, seq, player)
}
