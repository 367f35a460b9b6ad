// Package agent implements the server side of a conversation: the chat
// stream, the document stream and the save-and-create-tasks step.
//
// Streaming services write events to a Sink. A stream that fails stops
// without a complete event; readers see the truncation and treat it as a
// failure.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
	"github.com/HendryAvila/ensemble/internal/llm"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/HendryAvila/ensemble/internal/prompts"
	"github.com/HendryAvila/ensemble/internal/toolcall"
)

// Sink receives encoded events. *event.Writer implements it.
type Sink interface {
	Send(e event.Event) error
}

// ChatService streams one conversational turn.
type ChatService struct {
	model  llm.Streamer
	logger *logging.Logger
}

// NewChatService returns a ChatService backed by model.
func NewChatService(model llm.Streamer, logger *logging.Logger) *ChatService {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ChatService{model: model, logger: logger.WithComponent("chat")}
}

// ChatRequestFor builds the model request for req.
func ChatRequestFor(req api.ChatRequest) llm.Request {
	msgs := make([]llm.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		role := llm.RoleUser
		if m.Role == project.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Prompt})
	return llm.Request{
		System:   prompts.ChatSystem(prompts.UserContext{Email: req.Email, ProjectName: req.ProjectName}),
		Messages: msgs,
		Tools:    toolcall.Definitions(),
	}
}

// Stream relays model output to sink: text fragments as text events, tool
// calls as tool_call events, then complete. On failure it returns the
// error without sending complete.
func (s *ChatService) Stream(ctx context.Context, req api.ChatRequest, sink Sink) error {
	stream, err := s.model.Stream(ctx, ChatRequestFor(req))
	if err != nil {
		s.logger.Error("chat stream failed to start", "error", err)
		return fmt.Errorf("starting chat stream: %w", err)
	}
	defer stream.Close()

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sink.Send(event.Complete())
		}
		if err != nil {
			s.logger.Error("chat stream failed", "error", err)
			return fmt.Errorf("chat stream: %w", err)
		}

		var e event.Event
		switch frag.Kind {
		case llm.KindText:
			e = event.Text(frag.Delta)
		case llm.KindToolCall:
			s.logger.Debug("tool call", "tool", frag.Name)
			e = event.Tool(frag.Name, frag.Args)
		default:
			continue
		}
		if err := sink.Send(e); err != nil {
			return fmt.Errorf("sending event: %w", err)
		}
	}
}
