// Package cmd holds the ensemble command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/ensemble/internal/config"
	"github.com/HendryAvila/ensemble/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Conversational product-manager assistant",
	Long: `Ensemble turns a project idea into a saved document and a set of tracked
tasks. It talks to a language model, saves documents to Google Drive through
a Google Workspace MCP server and creates follow-up tasks in ClickUp.

Run "ensemble serve" for the HTTP API, "ensemble chat" for the terminal
client, or "ensemble mcp" to expose the assistant to an MCP host.`,
	SilenceUsage: true,
}

var (
	cfgFile string
	// configErr is set by initConfig when an explicit config file cannot
	// be read.
	configErr error
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/ensemble/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults(viper.GetViper())
	configErr = config.ReadFile(viper.GetViper(), cfgFile)
}

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, fmt.Errorf("reading config: %w", configErr)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes to the configured file or stderr. Stdout belongs to
// the MCP transport and the TUI.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewFile(cfg.Logging.File, cfg.Logging.Level)
}
