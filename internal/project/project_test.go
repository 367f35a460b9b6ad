package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTasks() []Task {
	return []Task{
		{ID: "t1", Title: "Write system design", Status: StatusTodo, ExternalID: "cu-1"},
		{ID: "t2", Title: "Finalize project proposal", Status: StatusTodo},
	}
}

func TestFindTodo(t *testing.T) {
	tasks := sampleTasks()
	tasks = append(tasks, Task{ID: "t3", Title: "Design review", Status: StatusDone})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"substring", "design", 0},
		{"case insensitive", "PROPOSAL", 1},
		{"exact id", "t2", 1},
		{"no substring match", "write spec", -1},
		{"empty", "", -1},
		{"blank", "   ", -1},
		{"done tasks skipped", "review", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindTodo(tasks, tt.query))
		})
	}
}

func TestFindTodo_FirstTodoWins(t *testing.T) {
	tasks := []Task{
		{ID: "a", Title: "Set up repo", Status: StatusDone},
		{ID: "b", Title: "Set up dataset spreadsheet", Status: StatusTodo},
		{ID: "c", Title: "Set up CI", Status: StatusTodo},
	}
	assert.Equal(t, 1, FindTodo(tasks, "set up"))
}

func TestStore_CompleteTaskIsIdempotent(t *testing.T) {
	s := NewStore()
	s.ReplaceTasks(sampleTasks())

	task, ok := s.CompleteTask("design")
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "cu-1", task.ExternalID)
	assert.Equal(t, StatusDone, s.Tasks()[0].Status)

	_, ok = s.CompleteTask("design")
	assert.False(t, ok)
	assert.Equal(t, []TaskStatus{StatusDone, StatusTodo}, []TaskStatus{s.Tasks()[0].Status, s.Tasks()[1].Status})
}

func TestStore_CompleteTaskNoMatchLeavesState(t *testing.T) {
	s := NewStore()
	s.ReplaceTasks(sampleTasks())

	_, ok := s.CompleteTask("write spec")
	assert.False(t, ok)
	assert.Equal(t, sampleTasks(), s.Tasks())
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := NewStore()
	s.ReplaceTasks(sampleTasks())
	s.AppendMessage(RoleUser, "hi")

	snap := s.Snapshot()
	snap.State.Tasks[0].Title = "mutated"
	snap.Messages[0].Content = "mutated"

	assert.Equal(t, "Write system design", s.Tasks()[0].Title)
	assert.Equal(t, "hi", s.History()[0].Content)
}

func TestStore_Messages(t *testing.T) {
	s := NewStore()
	s.AppendMessage(RoleUser, "Build a todo app")
	id := s.AppendMessage(RoleAssistant, "")

	s.AppendToMessage(id, "Hel")
	s.AppendToMessage(id, "lo")
	m, ok := s.Message(id)
	require.True(t, ok)
	assert.Equal(t, "Hello", m.Content)

	s.RemoveMessage(id)
	_, ok = s.Message(id)
	assert.False(t, ok)

	s.PutMessage(Message{ID: id, Role: RoleAssistant, Content: "again"})
	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "again", history[1].Content)

	s.PutMessage(Message{ID: id, Role: RoleAssistant, Content: "rewritten"})
	assert.Len(t, s.History(), 2)
	assert.Equal(t, "rewritten", s.History()[1].Content)
}

func TestStore_Document(t *testing.T) {
	s := NewStore()
	s.AppendDocument("# A")
	s.SetDocumentURL("https://docs.google.com/document/d/x")
	s.ResetDocument()
	s.AppendDocument("# B")

	st := s.Snapshot().State
	assert.Equal(t, "# B", st.Document)
	assert.Empty(t, st.DocumentURL)
	assert.False(t, st.HasRealDocumentURL())

	s.SetDocumentURL("#")
	assert.False(t, s.Snapshot().State.HasRealDocumentURL())
}

func TestStore_SubscribeCoalesces(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.SetProjectName("A")
	s.SetProjectName("B")
	s.SetStatus("Generating document...")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	cancel()
	s.SetProjectName("C")
	select {
	case <-ch:
		t.Fatal("unsubscribed channel notified")
	default:
	}
	assert.Equal(t, "C", s.ProjectName())
}

func TestPhase_Busy(t *testing.T) {
	assert.False(t, PhaseIdle.Busy())
	assert.False(t, Phase("").Busy())
	assert.True(t, PhaseStreaming.Busy())
	assert.True(t, PhaseOrchestrating.Busy())
}

func TestState_TodoCount(t *testing.T) {
	st := State{Tasks: []Task{{Status: StatusTodo}, {Status: StatusDone}, {Status: StatusTodo}}}
	assert.Equal(t, 2, st.TodoCount())
}

func TestNewTask(t *testing.T) {
	orig := newID
	newID = func() string { return "fixed" }
	defer func() { newID = orig }()

	assert.Equal(t, Task{ID: "fixed", Title: "x", Status: StatusTodo}, NewTask("x", ""))
}
