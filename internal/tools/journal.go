package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// JournalTool handles the ensemble_journal MCP tool.
type JournalTool struct {
	journal *journal.Journal
}

// NewJournalTool creates a JournalTool. A nil journal yields empty results.
func NewJournalTool(j *journal.Journal) *JournalTool {
	return &JournalTool{journal: j}
}

// Definition returns the MCP tool definition for registration.
func (t *JournalTool) Definition() mcp.Tool {
	return mcp.NewTool("ensemble_journal",
		mcp.WithDescription(
			"Search the activity journal: turns, saved documents, created tasks, task completions, "+
				"authorization prompts and failures. Without a query, lists the most recent entries.",
		),
		mcp.WithString("query",
			mcp.Description("Full-text search terms"),
		),
		mcp.WithString("kind",
			mcp.Description("Only list entries of this kind when no query is given"),
			mcp.Enum(
				string(journal.KindTurn),
				string(journal.KindDocument),
				string(journal.KindTasks),
				string(journal.KindTaskComplete),
				string(journal.KindAuth),
				string(journal.KindError),
			),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 200)"),
		),
	)
}

// Handle processes the ensemble_journal tool call.
func (t *JournalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	kind := journal.Kind(req.GetString("kind", ""))
	limit := intArg(req, "limit", 10)

	var (
		entries []journal.Entry
		err     error
	)
	if strings.TrimSpace(query) != "" {
		entries, err = t.journal.Search(ctx, query, limit)
	} else {
		entries, err = t.journal.Recent(ctx, kind, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal lookup failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No journal entries found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d entries:\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- `%s` **%s** %s", e.CreatedAt, e.Kind, e.Summary)
		if e.Project != "" {
			fmt.Fprintf(&b, " (%s)", e.Project)
		}
		if e.Detail != "" {
			fmt.Fprintf(&b, "\n  %s", e.Detail)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
