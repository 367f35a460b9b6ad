package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/ensemble/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ensemble v%s\n", server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
