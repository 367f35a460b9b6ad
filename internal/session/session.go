// Package session runs conversation turns. The Sequencer consumes decoded
// events from a Backend, mutates the project Store and triggers the
// downstream calls (generate document, save it and create tasks, complete
// a task) in a fixed order with a fixed fallback.
//
// One turn is in flight at a time; Submit rejects a second with ErrBusy.
// The only concurrent work is the detached tracker completion started by
// CompleteTask.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/HendryAvila/ensemble/internal/toolcall"
)

var (
	// ErrBusy is returned by Submit while another turn is in flight.
	ErrBusy = errors.New("a turn is already in progress")

	// ErrEmptyInput is returned by Submit for blank input.
	ErrEmptyInput = errors.New("input is empty")
)

// User-facing messages appended by the sequencer.
const (
	FailureMessage   = "Sorry, something went wrong. Please try again."
	AuthInstructions = "Please authorize Google access using the link above, then try again."
)

// remoteTimeout bounds a detached tracker completion.
const remoteTimeout = 30 * time.Second

// Backend is what the sequencer talks to. *client.Client does it over HTTP;
// *agent.Local does it in-process.
type Backend interface {
	OpenChat(ctx context.Context, req api.ChatRequest) (event.Stream, error)
	OpenDocument(ctx context.Context, req api.DocumentRequest) (event.Stream, error)
	SaveDocument(ctx context.Context, req api.CompleteRequest) (api.CompleteResponse, error)
	CompleteTask(ctx context.Context, externalID string) error
}

// Sequencer drives turns for one conversation.
type Sequencer struct {
	id      string
	backend Backend
	store   *project.Store
	journal *journal.Journal
	logger  *logging.Logger

	busy   atomic.Bool
	remote sync.WaitGroup
}

// New returns a Sequencer writing to store. j may be nil.
func New(backend Backend, store *project.Store, j *journal.Journal, logger *logging.Logger) *Sequencer {
	if store == nil {
		store = project.NewStore()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	id := uuid.NewString()
	return &Sequencer{
		id:      id,
		backend: backend,
		store:   store,
		journal: j,
		logger:  logger.WithComponent("session").WithConversation(id),
	}
}

// ID identifies the conversation in logs.
func (s *Sequencer) ID() string { return s.id }

// Store returns the store the sequencer mutates. Callers must treat it as
// read-only.
func (s *Sequencer) Store() *project.Store { return s.store }

// Busy reports whether a turn is in flight.
func (s *Sequencer) Busy() bool { return s.busy.Load() }

// Wait blocks until every detached tracker completion has finished.
func (s *Sequencer) Wait() { s.remote.Wait() }

// Submit runs one turn for input. A failure replaces the assistant reply
// with FailureMessage, returns the phase to idle and is returned wrapped.
func (s *Sequencer) Submit(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	history := s.store.History()
	s.store.AppendMessage(project.RoleUser, input)
	reply := s.store.AppendMessage(project.RoleAssistant, "")
	s.record(ctx, journal.Entry{Kind: journal.KindTurn, Project: s.store.ProjectName(), Summary: input})

	t := &turn{seq: s}
	err := s.run(ctx, t, input, history, reply)
	s.setPhase(project.PhaseIdle)
	if err != nil {
		s.fail(ctx, reply, err)
		return fmt.Errorf("turn failed: %w", err)
	}
	return nil
}

func (s *Sequencer) run(ctx context.Context, t *turn, input string, history []project.Message, reply string) error {
	s.setPhase(project.PhaseStreaming)
	if err := s.chat(ctx, t, input, history, reply); err != nil {
		return err
	}

	if m, ok := s.store.Message(reply); ok && strings.TrimSpace(m.Content) == "" {
		s.store.RemoveMessage(reply)
	}

	if t.document == nil {
		return nil
	}
	name := s.store.ProjectName()
	if name == "" {
		s.logger.Warn("document requested before a project was named, skipping", "title", t.document.Title)
		return nil
	}

	s.setPhase(project.PhaseDocument)
	if err := s.generate(ctx, *t.document, name); err != nil {
		return err
	}

	doc := s.store.Document()
	if strings.TrimSpace(doc) == "" {
		s.logger.Warn("document stream produced no content", "project", name)
		return nil
	}

	s.setPhase(project.PhaseOrchestrating)
	return s.save(ctx, name, doc)
}

// --- Steps ---

func (s *Sequencer) chat(ctx context.Context, t *turn, input string, history []project.Message, reply string) error {
	stream, err := s.backend.OpenChat(ctx, api.ChatRequest{
		Prompt:      input,
		History:     chatHistory(history),
		Email:       s.store.Email(),
		ProjectName: s.store.ProjectName(),
	})
	if err != nil {
		return fmt.Errorf("opening chat stream: %w", err)
	}
	return consume(stream, func(e event.Event) {
		switch e.Type {
		case event.TypeText:
			s.store.AppendToMessage(reply, e.Content)
		case event.TypeToolCall:
			s.dispatch(t, e.ToolCall)
		case event.TypeStatus:
			s.store.SetStatus(e.Content)
		}
	})
}

func (s *Sequencer) dispatch(t *turn, tc *event.ToolCall) {
	if tc == nil {
		return
	}
	call, err := toolcall.Parse(tc.Name, tc.Args)
	if err != nil {
		s.logger.Warn("ignoring tool call", "tool", tc.Name, "error", err)
		return
	}
	s.logger.Debug("tool call", "tool", call.ToolName())
	call.Dispatch(t)
}

func (s *Sequencer) generate(ctx context.Context, req toolcall.GenerateDocument, name string) error {
	s.store.ResetDocument()
	stream, err := s.backend.OpenDocument(ctx, api.DocumentRequest{
		ProjectName:         name,
		ConversationContext: Transcript(s.store.History()),
		Type:                string(req.Type),
		Title:               req.Title,
	})
	if err != nil {
		return fmt.Errorf("opening document stream: %w", err)
	}
	return consume(stream, func(e event.Event) {
		switch e.Type {
		case event.TypeDocument:
			s.store.AppendDocument(e.Content)
		case event.TypeStatus:
			s.store.SetStatus(e.Content)
		}
	})
}

func (s *Sequencer) save(ctx context.Context, name, doc string) error {
	resp, err := s.backend.SaveDocument(ctx, api.CompleteRequest{
		ProjectName: name,
		Document:    doc,
		Email:       s.store.Email(),
	})
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if resp.AuthRequired {
		s.logger.Info("document store needs authorization", "project", name)
		s.store.AppendMessage(project.RoleAssistant, AuthMessage(resp.AuthURL))
		return nil
	}

	s.store.ReplaceTasks(resp.Tasks)
	s.store.SetDocumentURL(resp.DocURL)
	s.store.AppendMessage(project.RoleAssistant, Summary(resp.DocURL, len(resp.Tasks)))
	return nil
}

// fail rewrites the reply with FailureMessage, restoring it if it was
// dropped as empty.
func (s *Sequencer) fail(ctx context.Context, reply string, err error) {
	s.logger.Error("turn failed", "error", err)
	s.store.PutMessage(project.Message{ID: reply, Role: project.RoleAssistant, Content: FailureMessage})
	s.record(ctx, journal.Entry{Kind: journal.KindError, Project: s.store.ProjectName(), Summary: "turn failed", Detail: err.Error()})
}

// --- Task completion ---

// CompleteTask marks the first todo task matching query as done. When the
// task is tracked, the tracker is told in a detached goroutine whose
// failure is only logged. No match, or a task already done, is a no-op.
func (s *Sequencer) CompleteTask(query string) (project.Task, bool) {
	task, ok := s.store.CompleteTask(query)
	if !ok {
		s.logger.Debug("no todo task matches", "query", query)
		return project.Task{}, false
	}
	s.logger.Info("task completed", "task", task.Title)
	if task.ExternalID != "" {
		s.completeRemote(task.ExternalID)
	}
	return task, true
}

func (s *Sequencer) completeRemote(externalID string) {
	s.remote.Add(1)
	go func() {
		defer s.remote.Done()
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := s.backend.CompleteTask(ctx, externalID); err != nil {
			s.logger.Warn("remote task completion failed", "task_id", externalID, "error", err)
		}
	}()
}

// --- Helpers ---

// consume drains stream into fn. It returns nil once complete has been
// seen and the stream's error otherwise.
func consume(stream event.Stream, fn func(event.Event)) error {
	defer stream.Close()
	for {
		e, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		fn(e)
	}
}

func (s *Sequencer) setPhase(to project.Phase) {
	from := s.store.Phase()
	if !canTransition(from, to) {
		s.logger.Warn("unexpected phase transition", "from", from, "to", to)
	}
	s.store.SetPhase(to)
}

func (s *Sequencer) record(ctx context.Context, e journal.Entry) {
	if _, err := s.journal.Record(ctx, e); err != nil {
		s.logger.Warn("journal write failed", "error", err)
	}
}

func chatHistory(msgs []project.Message) []api.ChatMessage {
	out := make([]api.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, api.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Transcript renders messages as role-labeled lines for the document
// writer.
func Transcript(msgs []project.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Summary is the message appended after a successful save.
func Summary(docURL string, tasks int) string {
	where := ""
	if (project.State{DocumentURL: docURL}).HasRealDocumentURL() {
		where = " to Google Drive"
	}
	if tasks == 0 {
		return "I've saved your document" + where + "."
	}
	return fmt.Sprintf("I've saved your document%s and created %d tasks to get started.", where, tasks)
}

// AuthMessage is the message appended when the document store needs the
// user to authorize access.
func AuthMessage(authURL string) string {
	if authURL == "" {
		return AuthInstructions
	}
	return authURL + "\n\n" + AuthInstructions
}
