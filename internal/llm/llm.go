// Package llm adapts a streaming language-model API to an ordered sequence
// of text and tool-call fragments.
//
// The adapter reports tool calls; it does not interpret them. Arguments are
// validated against the declared schema before they are reported, and a
// violation ends the stream with ErrInvalidToolCall. Adapters never retry.
package llm

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrInvalidToolCall ends a stream whose model requested an undeclared tool
// or passed arguments that violate the tool's schema.
var ErrInvalidToolCall = errors.New("invalid tool call")

// Role of a conversation message sent to the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Request describes one model call.
type Request struct {
	System   string
	Messages []Message
	Tools    []mcp.Tool
}

// Kind discriminates Fragment.
type Kind int

const (
	KindText Kind = iota
	KindToolCall
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindToolCall:
		return "tool_call"
	default:
		return "unknown"
	}
}

// Fragment is one item of model output: a text delta or a complete,
// validated tool invocation.
type Fragment struct {
	Kind  Kind
	Delta string
	Name  string
	Args  map[string]any
}

// TextFragment returns a text fragment.
func TextFragment(delta string) Fragment { return Fragment{Kind: KindText, Delta: delta} }

// ToolFragment returns a tool-call fragment.
func ToolFragment(name string, args map[string]any) Fragment {
	if args == nil {
		args = map[string]any{}
	}
	return Fragment{Kind: KindToolCall, Name: name, Args: args}
}

// Stream is a single-pass, ordered fragment sequence. Recv returns io.EOF
// after the model signals completion; any other error is terminal.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Streamer starts model calls.
type Streamer interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
