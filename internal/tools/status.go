package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// remoteLookupTimeout bounds all tracker lookups of one status call.
const remoteLookupTimeout = 10 * time.Second

// TaskStatusReader reports the tracker's status for a tracked task.
// *agent.Local implements it.
type TaskStatusReader interface {
	TaskStatus(ctx context.Context, externalID string) (string, bool)
}

// StatusTool handles the ensemble_status MCP tool.
type StatusTool struct {
	store  *project.Store
	remote TaskStatusReader
}

// NewStatusTool creates a StatusTool reading store. remote may be nil, in
// which case tracked tasks are only marked as tracked.
func NewStatusTool(store *project.Store, remote TaskStatusReader) *StatusTool {
	return &StatusTool{store: store, remote: remote}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("ensemble_status",
		mcp.WithDescription(
			"Show the current project: name, turn phase, saved document link and the task list. "+
				"Set include_document to also return the generated document.",
		),
		mcp.WithBoolean("include_document",
			mcp.Description("Include the full document text (default: false)"),
		),
	)
}

// Handle processes the ensemble_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := t.store.Snapshot()
	st := snap.State

	var b strings.Builder
	b.WriteString("# Ensemble Project\n\n")
	fmt.Fprintf(&b, "**Project:** %s\n", orDash(st.ProjectName))
	fmt.Fprintf(&b, "**Phase:** %s\n", snap.Phase)
	fmt.Fprintf(&b, "**Email:** %s\n", orDash(snap.Email))
	if snap.Status != "" {
		fmt.Fprintf(&b, "**Last status:** %s\n", snap.Status)
	}
	switch {
	case st.Document == "":
		b.WriteString("**Document:** not generated yet\n")
	case st.HasRealDocumentURL():
		fmt.Fprintf(&b, "**Document:** %d characters, saved at %s\n", len(st.Document), st.DocumentURL)
	default:
		fmt.Fprintf(&b, "**Document:** %d characters, not saved\n", len(st.Document))
	}

	done := len(st.Tasks) - st.TodoCount()
	fmt.Fprintf(&b, "\n## Tasks (%d/%d done)\n\n", done, len(st.Tasks))
	renderTasks(&b, st.Tasks, t.remoteStatuses(ctx, st.Tasks))

	if boolArg(req, "include_document", false) && st.Document != "" {
		b.WriteString("\n## Document\n\n")
		b.WriteString(st.Document)
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// remoteStatuses looks up tracked tasks, keyed by external ID. Failed
// lookups are left out.
func (t *StatusTool) remoteStatuses(ctx context.Context, tasks []project.Task) map[string]string {
	if t.remote == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, remoteLookupTimeout)
	defer cancel()

	out := make(map[string]string)
	for _, task := range tasks {
		if task.ExternalID == "" {
			continue
		}
		if status, ok := t.remote.TaskStatus(ctx, task.ExternalID); ok {
			out[task.ExternalID] = status
		}
	}
	return out
}
