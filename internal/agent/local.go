package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
)

// ErrNotCompleted is returned by Local.CompleteTask when the tracker did
// not accept the completion.
var ErrNotCompleted = errors.New("tracker did not complete the task")

// Local serves a session in-process. Streams still go through the event
// codec over an io.Pipe, so the session sees exactly what an HTTP client
// would.
type Local struct {
	Chat     *ChatService
	Document *DocumentService
	Complete *CompletionService
}

// OpenChat implements the session backend.
func (l *Local) OpenChat(ctx context.Context, req api.ChatRequest) (event.Stream, error) {
	return pipe(func(sink Sink) error { return l.Chat.Stream(ctx, req, sink) }), nil
}

// OpenDocument implements the session backend.
func (l *Local) OpenDocument(ctx context.Context, req api.DocumentRequest) (event.Stream, error) {
	return pipe(func(sink Sink) error { return l.Document.Generate(ctx, req, sink) }), nil
}

// SaveDocument implements the session backend.
func (l *Local) SaveDocument(ctx context.Context, req api.CompleteRequest) (api.CompleteResponse, error) {
	if msg := req.Validate(); msg != "" {
		return api.CompleteResponse{}, fmt.Errorf("invalid request: %s", msg)
	}
	return l.Complete.Complete(ctx, req), nil
}

// CompleteTask implements the session backend.
func (l *Local) CompleteTask(ctx context.Context, externalID string) error {
	if !l.Complete.CompleteRemote(ctx, externalID) {
		return ErrNotCompleted
	}
	return nil
}

// TaskStatus reports the tracker's status for a tracked task.
func (l *Local) TaskStatus(ctx context.Context, externalID string) (string, bool) {
	return l.Complete.RemoteStatus(ctx, externalID)
}

// pipe runs produce in a goroutine and returns a reader over its output.
// The pipe closes cleanly either way; a producer that stopped early leaves
// the stream without complete.
func pipe(produce func(Sink) error) event.Stream {
	pr, pw := io.Pipe()
	go func() {
		_ = produce(event.NewWriter(pw))
		_ = pw.Close()
	}()
	return event.NewReader(pr)
}
