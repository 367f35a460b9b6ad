package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestHandleState(t *testing.T) {
	store := project.NewStore()
	store.SetProjectName("TodoApp")
	store.ReplaceTasks([]project.Task{{ID: "1", Title: "Write system design", Status: project.StatusTodo}})
	h := NewHandler(store)

	contents, err := h.HandleState(context.Background(), readRequest(StateURI))
	if err != nil {
		t.Fatalf("HandleState failed: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T, want TextResourceContents", contents[0])
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", tc.MIMEType)
	}

	var got struct {
		ProjectName string         `json:"projectName"`
		Tasks       []project.Task `json:"tasks"`
		Phase       string         `json:"phase"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, tc.Text)
	}
	if got.ProjectName != "TodoApp" || len(got.Tasks) != 1 || got.Phase != "idle" {
		t.Errorf("unexpected state: %+v", got)
	}
}

func TestHandleState_EmptyTasksIsArray(t *testing.T) {
	contents, err := NewHandler(project.NewStore()).HandleState(context.Background(), readRequest(StateURI))
	if err != nil {
		t.Fatalf("HandleState failed: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if string(raw["tasks"]) != "[]" {
		t.Errorf("tasks = %s, want []", raw["tasks"])
	}
}

func TestHandleDocument(t *testing.T) {
	store := project.NewStore()
	h := NewHandler(store)

	contents, err := h.HandleDocument(context.Background(), readRequest(DocumentURI))
	if err != nil {
		t.Fatalf("HandleDocument failed: %v", err)
	}
	if tc := contents[0].(mcp.TextResourceContents); tc.MIMEType != "text/plain" {
		t.Errorf("missing document should be a plain-text error, got %q", tc.MIMEType)
	}

	store.AppendDocument("# TodoApp PRD")
	contents, err = h.HandleDocument(context.Background(), readRequest(DocumentURI))
	if err != nil {
		t.Fatalf("HandleDocument failed: %v", err)
	}
	if tc := contents[0].(mcp.TextResourceContents); tc.Text != "# TodoApp PRD" {
		t.Errorf("Text = %q", tc.Text)
	}
}
