package project

import (
	"slices"
	"sync"
)

// Store is the mutable aggregate for one conversation. All methods are
// safe for concurrent use; every mutation notifies subscribers.
type Store struct {
	mu       sync.RWMutex
	state    State
	messages []Message
	phase    Phase
	status   string
	email    string

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewStore returns an empty, idle store.
func NewStore() *Store {
	return &Store{phase: PhaseIdle, subs: make(map[int]chan struct{})}
}

// Snapshot returns a deep copy of the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Tasks = slices.Clone(s.state.Tasks)
	return Snapshot{
		State:    st,
		Messages: slices.Clone(s.messages),
		Phase:    s.phase,
		Status:   s.status,
		Email:    s.email,
	}
}

// Subscribe returns a channel that receives a value after changes. Bursts
// of changes coalesce into one notification; slow readers never block
// writers. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// update runs fn under the write lock, then notifies.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

// --- Turn bookkeeping ---

func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Store) SetPhase(p Phase) { s.update(func() { s.phase = p }) }

// SetStatus replaces the latest status line.
func (s *Store) SetStatus(line string) { s.update(func() { s.status = line }) }

// Email returns the recorded user email, or "".
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Store) SetEmail(email string) { s.update(func() { s.email = email }) }

// --- Messages ---

// AppendMessage adds a message and returns its ID.
func (s *Store) AppendMessage(role Role, content string) string {
	m := Message{ID: newID(), Role: role, Content: content}
	s.update(func() { s.messages = append(s.messages, m) })
	return m.ID
}

// AppendToMessage appends delta to the content of message id.
func (s *Store) AppendToMessage(id, delta string) {
	s.update(func() {
		if i := s.messageIndex(id); i >= 0 {
			s.messages[i].Content += delta
		}
	})
}

// Message returns message id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.messageIndex(id); i >= 0 {
		return s.messages[i], true
	}
	return Message{}, false
}

// PutMessage rewrites the message with m.ID, or appends m if it is gone.
func (s *Store) PutMessage(m Message) {
	s.update(func() {
		if i := s.messageIndex(m.ID); i >= 0 {
			s.messages[i] = m
			return
		}
		s.messages = append(s.messages, m)
	})
}

// RemoveMessage deletes message id, if present.
func (s *Store) RemoveMessage(id string) {
	s.update(func() {
		if i := s.messageIndex(id); i >= 0 {
			s.messages = slices.Delete(s.messages, i, i+1)
		}
	})
}

// History returns the transcript, oldest first.
func (s *Store) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func (s *Store) messageIndex(id string) int {
	return slices.IndexFunc(s.messages, func(m Message) bool { return m.ID == id })
}

// --- Project state ---

// ProjectName returns the current project name, or "".
func (s *Store) ProjectName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ProjectName
}

// SetProjectName overwrites the project name.
func (s *Store) SetProjectName(name string) { s.update(func() { s.state.ProjectName = name }) }

// Document returns the accumulated document text.
func (s *Store) Document() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Document
}

// ResetDocument clears the document before a new generation.
func (s *Store) ResetDocument() {
	s.update(func() {
		s.state.Document = ""
		s.state.DocumentURL = ""
	})
}

// AppendDocument appends streamed document content.
func (s *Store) AppendDocument(delta string) { s.update(func() { s.state.Document += delta }) }

// SetDocumentURL records where the document was saved.
func (s *Store) SetDocumentURL(url string) { s.update(func() { s.state.DocumentURL = url }) }

// Tasks returns a copy of the task list.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Tasks)
}

// ReplaceTasks swaps the whole task list.
func (s *Store) ReplaceTasks(tasks []Task) {
	tasks = slices.Clone(tasks)
	s.update(func() { s.state.Tasks = tasks })
}

// CompleteTask marks the first todo task matching query as done and returns
// it. ok is false when nothing matched, which is not an error.
func (s *Store) CompleteTask(query string) (task Task, ok bool) {
	s.mu.Lock()
	i := FindTodo(s.state.Tasks, query)
	if i >= 0 {
		s.state.Tasks[i].Status = StatusDone
		task, ok = s.state.Tasks[i], true
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return task, ok
}
