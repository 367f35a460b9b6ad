package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/ensemble/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// CompleteTaskTool handles the ensemble_complete_task MCP tool.
type CompleteTaskTool struct {
	seq *session.Sequencer
}

// NewCompleteTaskTool creates a CompleteTaskTool.
func NewCompleteTaskTool(seq *session.Sequencer) *CompleteTaskTool {
	return &CompleteTaskTool{seq: seq}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("ensemble_complete_task",
		mcp.WithDescription(
			"Mark a project task as done. Matches the task ID exactly or any part of the title, "+
				"case-insensitively; the first open match wins. Tracked tasks are also completed "+
				"in ClickUp in the background.",
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("Task ID or part of its title, e.g. 'design'"),
		),
	)
}

// Handle processes the ensemble_complete_task tool call.
func (t *CompleteTaskTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("task", "")
	if query == "" {
		return mcp.NewToolResultError("'task' is required"), nil
	}

	task, ok := t.seq.CompleteTask(query)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No open task matches %q.", query)), nil
	}

	msg := fmt.Sprintf("✅ Completed %q.", task.Title)
	if task.ExternalID != "" {
		msg += " ClickUp is being updated."
	}
	return mcp.NewToolResultText(msg), nil
}
