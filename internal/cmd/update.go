package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/ensemble/internal/server"
	"github.com/HendryAvila/ensemble/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update to the latest release",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	return selfUpdate(cmd, updater.New())
}

func selfUpdate(cmd *cobra.Command, u *updater.Updater) error {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "🔍 Checking for updates...\n")

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}
	version, err := u.SelfUpdate(cmd.Context(), server.Version, exe)
	if errors.Is(err, updater.ErrUpToDate) {
		fmt.Fprintf(out, "✅ Already at the latest version (v%s)\n", server.Version)
		return nil
	}
	if err != nil {
		fmt.Fprintf(out, "\n   You can download manually from:\n   https://github.com/%s/releases/latest\n", updater.Repo)
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(out, "✅ Updated to v%s!\n", version)
	fmt.Fprintf(out, "   Restart ensemble to use the new version.\n")
	return nil
}
