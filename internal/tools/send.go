package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/HendryAvila/ensemble/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// SendTool handles the ensemble_send MCP tool. It runs one conversation
// turn and returns the assistant's replies.
type SendTool struct {
	seq *session.Sequencer
}

// NewSendTool creates a SendTool driving seq.
func NewSendTool(seq *session.Sequencer) *SendTool {
	return &SendTool{seq: seq}
}

// Definition returns the MCP tool definition for registration.
func (t *SendTool) Definition() mcp.Tool {
	return mcp.NewTool("ensemble_send",
		mcp.WithDescription(
			"Send a message to the Ensemble project assistant. The assistant may name the project, "+
				"write a document into the canvas, save it to Google Drive and create follow-up tasks. "+
				"Returns the assistant's replies and a short project summary.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("What the user says to the assistant"),
		),
	)
}

// Handle processes the ensemble_send tool call.
func (t *SendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := strings.TrimSpace(req.GetString("message", ""))
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}

	before := len(t.seq.Store().History())
	err := t.seq.Submit(ctx, message)
	if errors.Is(err, session.ErrBusy) {
		return mcp.NewToolResultError("The assistant is still working on the previous message. Try again shortly."), nil
	}

	snap := t.seq.Store().Snapshot()
	var b strings.Builder
	replies := 0
	if before <= len(snap.Messages) {
		for _, m := range snap.Messages[before:] {
			if m.Role != project.RoleAssistant {
				continue
			}
			b.WriteString(m.Content)
			b.WriteString("\n\n")
			replies++
		}
	}
	if replies == 0 {
		b.WriteString("(no reply)\n\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "**Project:** %s\n", orDash(snap.State.ProjectName))
	if snap.State.Document != "" {
		fmt.Fprintf(&b, "**Document:** %d characters", len(snap.State.Document))
		if snap.State.HasRealDocumentURL() {
			fmt.Fprintf(&b, " at %s", snap.State.DocumentURL)
		}
		b.WriteString("\n")
	}
	if n := len(snap.State.Tasks); n > 0 {
		fmt.Fprintf(&b, "**Tasks:** %d open of %d\n", snap.State.TodoCount(), n)
	}

	if err != nil {
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
