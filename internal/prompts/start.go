// Package prompts holds the instructions given to the language model and
// the MCP prompts the ensemble front end offers to hosts.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the host's AI to drive Ensemble's tools in a fixed sequence.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the ensemble-start MCP prompt.
// It asks the host to describe a project idea through ensemble_send.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ensemble-start",
		mcp.WithPromptDescription(
			"Start planning a project with the Ensemble product manager. "+
				"It will ask a few questions, then write a PRD, architecture, Q&A or task document "+
				"and create the first tasks.",
		),
		mcp.WithArgument("idea",
			mcp.ArgumentDescription("One or two sentences describing what you want to build"),
		),
	)
}

// Handle processes the ensemble-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	idea := ""
	if args := req.Params.Arguments; args != nil {
		idea = args["idea"]
	}

	opening := "Ask me what I want to build, then send my answer"
	if idea != "" {
		opening = fmt.Sprintf("Send this idea: %q", idea)
	}

	return &mcp.GetPromptResult{
		Description: "Start an Ensemble planning session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to plan a project with Ensemble.\n\n"+
						"Please:\n"+
						"1. %s with `ensemble_send`\n"+
						"2. Show me the product manager's reply verbatim and relay my answers back with `ensemble_send`\n"+
						"3. When a document is generated, show me its link and the tasks from the reply\n"+
						"4. When I say a task is finished, call `ensemble_complete_task` with its title",
					opening,
				)),
			},
		},
	}, nil
}
