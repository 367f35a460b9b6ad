// Package event implements the stream protocol shared by the chat and
// document endpoints.
//
// Every event is a discriminated union serialized as JSON and framed as a
// single server-sent-events data line:
//
//	data: {"type":"text","content":"Hel"}
//
// The same framing carries conversational text and canvas content; the
// consumer tells them apart by Type, not by endpoint.
package event

import (
	"encoding/json"
	"errors"
	"strings"
)

// Prefix starts every encoded frame.
const Prefix = "data: "

// ErrTruncated is returned by a Reader when the underlying body ends before
// a complete event was seen. Consumers treat it as an implicit failure.
var ErrTruncated = errors.New("event stream ended before completion")

// Type discriminates the Event union.
type Type string

const (
	TypeText     Type = "text"
	TypeDocument Type = "document"
	TypeToolCall Type = "tool_call"
	TypeStatus   Type = "status"
	TypeComplete Type = "complete"
)

// validTypes is the set of types Decode accepts.
var validTypes = map[Type]bool{
	TypeText:     true,
	TypeDocument: true,
	TypeToolCall: true,
	TypeStatus:   true,
	TypeComplete: true,
}

// ToolCall is a structured action requested by the model mid-stream.
// Args holds JSON-decoded values (string, float64, bool, nil, []any,
// map[string]any).
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Event is one item of a decoded stream.
type Event struct {
	Type     Type      `json:"type"`
	Content  string    `json:"content,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

// Text returns a conversational text fragment.
func Text(content string) Event { return Event{Type: TypeText, Content: content} }

// Document returns a canvas content fragment.
func Document(content string) Event { return Event{Type: TypeDocument, Content: content} }

// Status returns a user-facing progress line.
func Status(content string) Event { return Event{Type: TypeStatus, Content: content} }

// Complete returns the terminal event of a successful stream.
func Complete() Event { return Event{Type: TypeComplete} }

// Tool returns a tool invocation event.
func Tool(name string, args map[string]any) Event {
	if args == nil {
		args = map[string]any{}
	}
	return Event{Type: TypeToolCall, ToolCall: &ToolCall{Name: name, Args: args}}
}

// Valid reports whether e is a well-formed member of the union.
func (e Event) Valid() bool {
	if !validTypes[e.Type] {
		return false
	}
	if e.Type == TypeToolCall {
		return e.ToolCall != nil && strings.TrimSpace(e.ToolCall.Name) != ""
	}
	return true
}

// Encode serializes e as one frame, including the trailing blank line.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(Prefix)+len(payload)+2)
	frame = append(frame, Prefix...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// Decode parses a single line into an Event. It never panics: lines
// without the data prefix, invalid JSON and unknown or incomplete events
// all yield false.
func Decode(line string) (Event, bool) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), Prefix)
	if !ok {
		return Event{}, false
	}
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, false
	}
	if !e.Valid() {
		return Event{}, false
	}
	return e, true
}
