// Ensemble: a conversational product-manager assistant.
//
// Usage:
//
//	ensemble serve    # HTTP API
//	ensemble chat     # terminal client for a running server
//	ensemble mcp      # MCP server (stdio transport)
//	ensemble update   # update to the latest version
package main

import (
	"os"

	"github.com/HendryAvila/ensemble/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
