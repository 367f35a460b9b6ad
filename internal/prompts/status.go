package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the ensemble-status MCP prompt.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ensemble-status",
		mcp.WithPromptDescription(
			"Check where the current Ensemble project stands: "+
				"project name, saved document, open tasks and recent activity.",
		),
	)
}

// Handle processes the ensemble-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Ensemble project status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `ensemble_status` to check my project.\n\n" +
						"Then:\n" +
						"1. Show the project name and the document link, if any\n" +
						"2. List the tasks, marking which are done\n" +
						"3. Run `ensemble_journal` and summarize anything that failed (documents or tasks not saved)\n" +
						"4. Suggest the next document or task to work on",
				),
			},
		},
	}, nil
}
