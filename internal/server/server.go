// Package server holds the two composition roots of Ensemble: the HTTP
// API (API) and the MCP server (NewMCP). Both take concrete services and
// register handlers; no business logic lives here, only wiring.
package server

import (
	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/HendryAvila/ensemble/internal/prompts"
	"github.com/HendryAvila/ensemble/internal/resources"
	"github.com/HendryAvila/ensemble/internal/session"
	"github.com/HendryAvila/ensemble/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewMCP creates the MCP server with all tools, prompts and resources
// registered. seq drives the conversation; j and remote may be nil.
func NewMCP(seq *session.Sequencer, j *journal.Journal, remote tools.TaskStatusReader) *server.MCPServer {
	s := server.NewMCPServer(
		"ensemble",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	sendTool := tools.NewSendTool(seq)
	s.AddTool(sendTool.Definition(), sendTool.Handle)

	statusTool := tools.NewStatusTool(seq.Store(), remote)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	completeTool := tools.NewCompleteTaskTool(seq)
	s.AddTool(completeTool.Definition(), completeTool.Handle)

	journalTool := tools.NewJournalTool(j)
	s.AddTool(journalTool.Definition(), journalTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(seq.Store())
	s.AddResource(resourceHandler.StateResource(), resourceHandler.HandleState)
	s.AddResource(resourceHandler.DocumentResource(), resourceHandler.HandleDocument)

	return s
}

// serverInstructions returns the system instructions that tell the host
// AI how to use Ensemble.
func serverInstructions() string {
	return `You have access to Ensemble, a product-manager assistant that turns a project
idea into a document and a set of tracked tasks.

## HOW IT WORKS

Ensemble keeps one conversation per server. Relay the user's words with
ensemble_send; Ensemble answers as the product manager. Along the way it:
- names the project,
- asks for the user's Gmail address (needed to save documents),
- writes a PRD, architecture, Q&A or task document into its canvas,
- saves the document to Google Drive and creates follow-up tasks in ClickUp.

## TOOLS

- ensemble_send: send one user message. Returns the assistant's replies and
  a short project summary. Only one message is processed at a time.
- ensemble_status: show the project, document link and task list.
- ensemble_complete_task: mark a task done by ID or part of its title.
- ensemble_journal: search what happened (documents saved, tasks created,
  failures, authorization prompts).

## RULES

- Show the assistant's replies to the user verbatim; do not answer on its behalf.
- If a reply contains a Google authorization link, show it and ask the user
  to authorize, then resend their request.
- If a reply says something went wrong, the turn was discarded; resend it.
- Task completion is local first. ClickUp is updated in the background and
  its failures never undo the local change.`
}
