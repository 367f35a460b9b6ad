package session

import (
	"github.com/HendryAvila/ensemble/internal/toolcall"
)

// turn handles the tool calls of one chat stream. Repeated calls overwrite
// earlier ones; only the last document request is acted on.
type turn struct {
	seq      *Sequencer
	document *toolcall.GenerateDocument
}

var _ toolcall.Handler = (*turn)(nil)

func (t *turn) OnSetProject(c toolcall.SetProject) {
	t.seq.store.SetProjectName(c.Name)
}

func (t *turn) OnSetEmail(c toolcall.SetEmail) {
	t.seq.store.SetEmail(c.Email)
}

// OnGenerateDocument defers generation until the chat stream has drained.
func (t *turn) OnGenerateDocument(c toolcall.GenerateDocument) {
	t.document = &c
}

func (t *turn) OnCompleteTask(c toolcall.CompleteTask) {
	t.seq.CompleteTask(c.TaskName)
}
