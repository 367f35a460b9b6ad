// Package tools implements the MCP tool handlers of the Ensemble front end.
//
// Each tool is a struct holding its dependencies, with Definition()
// returning the mcp.Tool schema and Handle() processing a call. Tools drive
// the conversation through the session sequencer and read the project
// store; they never mutate the store themselves.
package tools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// renderTasks writes the task table, or a placeholder when there are none.
// remote holds tracker statuses by external ID and may be nil.
func renderTasks(b *strings.Builder, tasks []project.Task, remote map[string]string) {
	if len(tasks) == 0 {
		b.WriteString("No tasks yet. Tasks are created once a document is saved.\n")
		return
	}
	b.WriteString("| # | Task | Status | Tracked |\n")
	b.WriteString("|---|------|--------|---------|\n")
	for i, t := range tasks {
		marker := "⬜"
		if t.Status == project.StatusDone {
			marker = "✅"
		}
		tracked := "no"
		if t.ExternalID != "" {
			tracked = "yes"
			if status, ok := remote[t.ExternalID]; ok {
				tracked = status
			}
		}
		fmt.Fprintf(b, "| %d | %s %s | %s | %s |\n", i+1, marker, t.Title, t.Status, tracked)
	}
}

// orDash returns "—" for empty values.
func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "—"
	}
	return v
}
