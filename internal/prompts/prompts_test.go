package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestChatSystem_UserContext(t *testing.T) {
	got := ChatSystem(UserContext{})
	if !strings.Contains(got, "- Gmail: NOT SET") {
		t.Error("missing email should render as NOT SET")
	}
	if !strings.Contains(got, "- Current project: NOT SET") {
		t.Error("missing project should render as NOT SET")
	}

	got = ChatSystem(UserContext{Email: "me@gmail.com", ProjectName: "TodoApp"})
	for _, want := range []string{"- Gmail: me@gmail.com", "- Current project: TodoApp", "setEmail", "generateDocument"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestDocumentPrompt(t *testing.T) {
	req := DocumentRequest("prd", "TodoApp PRD")
	if req != `Generate a prd document titled "TodoApp PRD"` {
		t.Errorf("DocumentRequest = %q", req)
	}

	got := DocumentPrompt("TodoApp", "user: build a todo app", req)
	if !strings.HasPrefix(got, "Project Name: TodoApp\n\nConversation Context:\nuser: build a todo app") {
		t.Errorf("unexpected prompt start: %q", got)
	}

	got = DocumentPrompt("TodoApp", "  ", req)
	if strings.Contains(got, "Conversation Context") {
		t.Error("blank context should be omitted")
	}
}

func TestStartPrompt(t *testing.T) {
	p := NewStartPrompt()
	if p.Definition().Name != "ensemble-start" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"idea": "a todo app"}
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := res.Messages[0].Content.(mcp.TextContent).Text
	if !strings.Contains(text, `"a todo app"`) || !strings.Contains(text, "ensemble_send") {
		t.Errorf("unexpected prompt: %s", text)
	}
}

func TestStatusPrompt(t *testing.T) {
	res, err := NewStatusPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := res.Messages[0].Content.(mcp.TextContent).Text
	if !strings.Contains(text, "ensemble_status") {
		t.Errorf("status prompt should reference ensemble_status: %s", text)
	}
}
