// Package resources implements MCP resource handlers for the Ensemble
// project.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (ensemble://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	StateURI    = "ensemble://project/state"
	DocumentURI = "ensemble://project/document"
)

// Handler serves resources from a project store.
type Handler struct {
	store *project.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *project.Store) *Handler {
	return &Handler{store: store}
}

// StateResource returns the MCP resource definition for the project state.
func (h *Handler) StateResource() mcp.Resource {
	return mcp.NewResource(
		StateURI,
		"Ensemble Project State",
		mcp.WithResourceDescription("Project name, document, document link, tasks and the turn phase"),
		mcp.WithMIMEType("application/json"),
	)
}

// DocumentResource returns the MCP resource definition for the generated
// document.
func (h *Handler) DocumentResource() mcp.Resource {
	return mcp.NewResource(
		DocumentURI,
		"Ensemble Project Document",
		mcp.WithResourceDescription("The most recently generated project document, as Markdown"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// stateView is the JSON shape of the state resource.
type stateView struct {
	project.State
	Phase  project.Phase `json:"phase"`
	Status string        `json:"status,omitempty"`
}

// HandleState returns the current project state as JSON.
func (h *Handler) HandleState(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap := h.store.Snapshot()
	view := stateView{State: snap.State, Phase: snap.Phase, Status: snap.Status}
	if view.Tasks == nil {
		view.Tasks = []project.Task{}
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling state: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// HandleDocument returns the generated document.
func (h *Handler) HandleDocument(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc := h.store.Document()
	if doc == "" {
		return errorResource(req.Params.URI, "no document has been generated yet"), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc,
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
