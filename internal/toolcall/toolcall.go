// Package toolcall declares the tools the assistant model may call and the
// closed set of typed calls they decode into.
//
// Schemas are declared as mcp.Tool values, the same way MCP servers declare
// tools, and converted to the model's function schema by the llm package.
// Decoded calls are a sealed variant: consumers implement Handler, so a new
// tool cannot be added without every consumer handling it.
package toolcall

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names as seen by the model.
const (
	NameSetProject       = "setProject"
	NameSetEmail         = "setEmail"
	NameGenerateDocument = "generateDocument"
	NameCompleteTask     = "completeTask"
)

// ErrUnknownTool is returned by Parse for names outside the declared set.
var ErrUnknownTool = errors.New("unknown tool")

// DocumentType selects which document the orchestrator writes.
type DocumentType string

const (
	DocPRD          DocumentType = "prd"
	DocArchitecture DocumentType = "architecture"
	DocQA           DocumentType = "qa"
	DocTasks        DocumentType = "tasks"
)

var validDocumentTypes = map[DocumentType]bool{
	DocPRD:          true,
	DocArchitecture: true,
	DocQA:           true,
	DocTasks:        true,
}

// Handler receives decoded calls, one method per variant.
type Handler interface {
	OnSetProject(SetProject)
	OnSetEmail(SetEmail)
	OnGenerateDocument(GenerateDocument)
	OnCompleteTask(CompleteTask)
}

// Call is a decoded tool invocation.
type Call interface {
	ToolName() string
	Dispatch(h Handler)
	sealed()
}

// SetProject names the project being discussed.
type SetProject struct {
	Name string
}

// SetEmail records the user's Google account for document sharing.
type SetEmail struct {
	Email string
}

// GenerateDocument asks for a document once the chat turn has finished.
type GenerateDocument struct {
	Type  DocumentType
	Title string
}

// CompleteTask marks the task whose title best matches TaskName as done.
type CompleteTask struct {
	TaskName string
}

func (SetProject) ToolName() string       { return NameSetProject }
func (SetEmail) ToolName() string         { return NameSetEmail }
func (GenerateDocument) ToolName() string { return NameGenerateDocument }
func (CompleteTask) ToolName() string     { return NameCompleteTask }

func (c SetProject) Dispatch(h Handler)       { h.OnSetProject(c) }
func (c SetEmail) Dispatch(h Handler)         { h.OnSetEmail(c) }
func (c GenerateDocument) Dispatch(h Handler) { h.OnGenerateDocument(c) }
func (c CompleteTask) Dispatch(h Handler)     { h.OnCompleteTask(c) }

func (SetProject) sealed()       {}
func (SetEmail) sealed()         {}
func (GenerateDocument) sealed() {}
func (CompleteTask) sealed()     {}

// Definitions returns the schemas offered to the chat model.
func Definitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(NameSetProject,
			mcp.WithDescription("Set the name of the project the user is describing. "+
				"Call this as soon as the project has a name."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Short project name, e.g. 'TodoApp'"),
			),
		),
		mcp.NewTool(NameSetEmail,
			mcp.WithDescription("Record the user's Gmail address. "+
				"Required before any document can be generated."),
			mcp.WithString("email",
				mcp.Required(),
				mcp.Description("The user's Gmail address"),
			),
		),
		mcp.NewTool(NameGenerateDocument,
			mcp.WithDescription("Generate a project document in the canvas once the user has picked one. "+
				"The document is written after your reply finishes."),
			mcp.WithString("type",
				mcp.Required(),
				mcp.Description("Document kind: prd, architecture, qa or tasks"),
				mcp.Enum(string(DocPRD), string(DocArchitecture), string(DocQA), string(DocTasks)),
			),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Document title, e.g. 'TodoApp PRD'"),
			),
		),
		mcp.NewTool(NameCompleteTask,
			mcp.WithDescription("Mark one of the project's tasks as done when the user says it is finished."),
			mcp.WithString("taskName",
				mcp.Required(),
				mcp.Description("The task title, or a distinctive part of it"),
			),
		),
	}
}

// Parse decodes a raw invocation into its typed variant.
func Parse(name string, args map[string]any) (Call, error) {
	switch name {
	case NameSetProject:
		v, err := requireString(args, "name")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return SetProject{Name: v}, nil
	case NameSetEmail:
		v, err := requireString(args, "email")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return SetEmail{Email: v}, nil
	case NameGenerateDocument:
		kind, err := requireString(args, "type")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		docType := DocumentType(strings.ToLower(kind))
		if !validDocumentTypes[docType] {
			return nil, fmt.Errorf("%s: invalid document type %q", name, kind)
		}
		title, err := requireString(args, "title")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return GenerateDocument{Type: docType, Title: title}, nil
	case NameCompleteTask:
		v, err := requireString(args, "taskName")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return CompleteTask{TaskName: v}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return strings.TrimSpace(v), nil
}
