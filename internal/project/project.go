// Package project holds the conversation aggregate: the project being
// described, its generated document, its task list and the chat transcript.
//
// Store is single-writer. The session sequencer is its only mutator; front
// ends read immutable Snapshots and re-render when notified.
package project

import (
	"github.com/google/uuid"
)

// newID generates task and message identifiers. Tests may replace it.
var newID = uuid.NewString

// --- Task ---

// TaskStatus is the lifecycle of a task. It moves todo → done exactly once.
type TaskStatus string

const (
	StatusTodo TaskStatus = "todo"
	StatusDone TaskStatus = "done"
)

// Task is one unit of follow-up work created from a saved document.
// ExternalID is set only when the tracker created a matching task.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Status     TaskStatus `json:"status"`
	ExternalID string     `json:"externalId,omitempty"`
}

// NewTask returns a todo task with a fresh ID.
func NewTask(title, externalID string) Task {
	return Task{ID: newID(), Title: title, Status: StatusTodo, ExternalID: externalID}
}

// --- Messages ---

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat bubble.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// --- State ---

// State is what the conversation has produced so far.
type State struct {
	ProjectName string `json:"projectName"`
	Document    string `json:"document"`
	DocumentURL string `json:"documentUrl,omitempty"`
	Tasks       []Task `json:"tasks"`
}

// Phase is the sequencer's position within a turn.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseStreaming     Phase = "streaming"
	PhaseDocument      Phase = "document"
	PhaseOrchestrating Phase = "orchestrating"
)

// Busy reports whether a turn is in flight.
func (p Phase) Busy() bool {
	return p != "" && p != PhaseIdle
}

// Snapshot is an immutable copy of the store.
type Snapshot struct {
	State    State     `json:"state"`
	Messages []Message `json:"messages"`
	Phase    Phase     `json:"phase"`
	Status   string    `json:"status,omitempty"`
	Email    string    `json:"email,omitempty"`
}

// HasRealDocumentURL reports whether the saved document has a usable link.
func (s State) HasRealDocumentURL() bool {
	return s.DocumentURL != "" && s.DocumentURL != "#"
}

// TodoCount returns the number of tasks still to do.
func (s State) TodoCount() int {
	n := 0
	for _, t := range s.Tasks {
		if t.Status == StatusTodo {
			n++
		}
	}
	return n
}
