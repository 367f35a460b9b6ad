// Package api defines the HTTP routes and JSON bodies shared by the
// Ensemble server and its clients.
package api

import (
	"strings"

	"github.com/HendryAvila/ensemble/internal/project"
)

// Routes.
const (
	RouteChat         = "/api/agent/stream"
	RouteDocument     = "/api/agent/document"
	RouteComplete     = "/api/agent/complete"
	RouteTaskComplete = "/api/tasks/complete"
	RouteTTS          = "/api/tts"
	RouteHealth       = "/healthz"
)

// ChatMessage is one prior message sent with a chat request.
type ChatMessage struct {
	Role    project.Role `json:"role"`
	Content string       `json:"content"`
}

// ChatRequest starts a chat stream.
type ChatRequest struct {
	Prompt      string        `json:"prompt"`
	History     []ChatMessage `json:"history,omitempty"`
	Email       string        `json:"email,omitempty"`
	ProjectName string        `json:"projectName,omitempty"`
}

// DocumentRequest starts a document stream. The session sends Type and
// Title; the server derives the request line from them. Prompt is for
// callers without a structured request and wins when set.
type DocumentRequest struct {
	Prompt              string `json:"prompt"`
	ProjectName         string `json:"projectName"`
	ConversationContext string `json:"conversationContext,omitempty"`
	Type                string `json:"type,omitempty"`
	Title               string `json:"title,omitempty"`
}

// CompleteRequest asks the server to save a document and create tasks.
type CompleteRequest struct {
	ProjectName string `json:"projectName"`
	Document    string `json:"document"`
	Email       string `json:"email,omitempty"`
}

// Validate reports a user error for malformed requests.
func (r CompleteRequest) Validate() string {
	if strings.TrimSpace(r.ProjectName) == "" {
		return "projectName is required"
	}
	return ""
}

// CompleteResponse is always returned with 200 OK. Degraded collaborators
// show up as sentinels: DocURL "#", tasks without externalId, AuthRequired.
type CompleteResponse struct {
	Tasks        []project.Task `json:"tasks"`
	DocURL       string         `json:"docUrl"`
	AuthRequired bool           `json:"authRequired,omitempty"`
	AuthURL      string         `json:"authUrl,omitempty"`
}

// TaskCompleteRequest marks a tracker task complete. The field name
// follows the tracker the IDs come from.
type TaskCompleteRequest struct {
	ClickUpTaskID string `json:"clickupTaskId"`
}

// SuccessResponse is the body of fire-and-forget endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// TTSRequest asks for speech audio.
type TTSRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the body of non-2xx JSON responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
