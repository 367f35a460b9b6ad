// Package tui is the terminal chat client. It follows the bubbletea model:
// the session's store is the source of truth, every change notification
// becomes a message, and View renders the latest snapshot.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/HendryAvila/ensemble/internal/session"
	"github.com/HendryAvila/ensemble/internal/speech"
)

type focus int

const (
	focusInput focus = iota
	focusTasks
)

// taskPaneWidth is the width of the task list beside the conversation.
const taskPaneWidth = 36

// storeChangedMsg is sent after the store notifies a change.
type storeChangedMsg struct{}

// turnDoneMsg is sent when Submit returns.
type turnDoneMsg struct{ err error }

// App is the bubbletea model of the chat client.
type App struct {
	ctx    context.Context
	seq    *session.Sequencer
	player *speech.Player

	updates     <-chan struct{}
	unsubscribe func()

	snap     project.Snapshot
	input    textinput.Model
	chat     viewport.Model
	focus    focus
	selected int
	notice   string

	width  int
	height int
}

// New returns the model. player may be nil to disable speech.
func New(ctx context.Context, seq *session.Sequencer, player *speech.Player) *App {
	in := textinput.New()
	in.Placeholder = "Describe your project..."
	in.Prompt = "› "
	in.CharLimit = 4000
	in.Focus()

	updates, unsubscribe := seq.Store().Subscribe()
	return &App{
		ctx:         ctx,
		seq:         seq,
		player:      player,
		updates:     updates,
		unsubscribe: unsubscribe,
		snap:        seq.Store().Snapshot(),
		input:       in,
		chat:        viewport.New(80, 20),
	}
}

// Init starts listening for store changes.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.waitForChange())
}

// Close releases the store subscription.
func (a *App) Close() { a.unsubscribe() }

func (a *App) waitForChange() tea.Cmd {
	updates := a.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// Update handles one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		return a, nil

	case storeChangedMsg:
		a.refresh()
		return a, a.waitForChange()

	case turnDoneMsg:
		a.notice = turnNotice(msg.err)
		a.refresh()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return a, tea.Quit
	case "tab":
		a.toggleFocus()
		return a, nil
	case "ctrl+s":
		a.speakLast()
		return a, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd
	}

	if a.focus == focusTasks {
		return a, a.handleTaskKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		return a, a.submit()
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleTaskKey(msg tea.KeyMsg) tea.Cmd {
	tasks := a.snap.State.Tasks
	switch msg.String() {
	case "up", "k":
		if a.selected > 0 {
			a.selected--
		}
	case "down", "j":
		if a.selected < len(tasks)-1 {
			a.selected++
		}
	case "enter", " ", "x":
		if a.selected < len(tasks) {
			a.seq.CompleteTask(tasks[a.selected].ID)
			a.refresh()
		}
	}
	return nil
}

func (a *App) toggleFocus() {
	if a.focus == focusInput && len(a.snap.State.Tasks) > 0 {
		a.focus = focusTasks
		a.input.Blur()
		return
	}
	a.focus = focusInput
	a.input.Focus()
}

// submit sends the input as one turn. The turn runs off the UI loop; its
// progress arrives through store notifications.
func (a *App) submit() tea.Cmd {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return nil
	}
	if a.seq.Busy() {
		a.notice = turnNotice(session.ErrBusy)
		return nil
	}
	a.input.Reset()
	a.notice = ""
	ctx, seq := a.ctx, a.seq
	return func() tea.Msg {
		return turnDoneMsg{err: seq.Submit(ctx, text)}
	}
}

func (a *App) speakLast() {
	if a.player == nil {
		a.notice = "Speech is not configured."
		return
	}
	for i := len(a.snap.Messages) - 1; i >= 0; i-- {
		m := a.snap.Messages[i]
		if m.Role == project.RoleAssistant && strings.TrimSpace(m.Content) != "" {
			if !a.player.Play(a.ctx, m.Content) {
				a.notice = "Still speaking."
			}
			return
		}
	}
}

func turnNotice(err error) string {
	switch {
	case err == nil, errors.Is(err, session.ErrEmptyInput):
		return ""
	case errors.Is(err, session.ErrBusy):
		return "Still working on the previous message."
	default:
		// The failure message is already in the conversation.
		return ""
	}
}

// refresh takes a new snapshot and re-renders the conversation.
func (a *App) refresh() {
	a.snap = a.seq.Store().Snapshot()
	if n := len(a.snap.State.Tasks); a.selected >= n {
		a.selected = max(0, n-1)
	}
	if a.focus == focusTasks && len(a.snap.State.Tasks) == 0 {
		a.toggleFocus()
	}
	a.chat.SetContent(renderMessages(a.snap.Messages, a.chat.Width))
	a.chat.GotoBottom()
}

func (a *App) layout() {
	chatWidth := max(20, a.width-taskPaneWidth-4)
	a.chat.Width = chatWidth
	a.chat.Height = max(3, a.height-7)
	a.input.Width = max(10, a.width-6)
	a.refresh()
}

// View renders the screen.
func (a *App) View() string {
	header := titleStyle.Render(headerTitle(a.snap.State)) + " " + phaseStyle.Render(phaseLine(a.snap))

	chatPane := paneStyle
	taskPane := paneStyle
	if a.focus == focusTasks {
		taskPane = focusedPaneStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		chatPane.Render(a.chat.View()),
		taskPane.Width(taskPaneWidth).Render(renderTasks(a.snap.State, a.selected, a.focus == focusTasks)),
	)

	footer := hintStyle.Render("enter send · tab tasks · ctrl+s speak · esc quit")
	if a.notice != "" {
		footer = noticeStyle.Render(a.notice) + "  " + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, a.input.View(), footer)
}

func headerTitle(st project.State) string {
	if st.ProjectName == "" {
		return "Ensemble"
	}
	return "Ensemble · " + st.ProjectName
}

func phaseLine(s project.Snapshot) string {
	if s.Phase.Busy() {
		if s.Status != "" {
			return fmt.Sprintf("%s: %s", s.Phase, s.Status)
		}
		return string(s.Phase) + "..."
	}
	return s.Status
}

func renderMessages(msgs []project.Message, width int) string {
	wrap := bodyStyle.Width(max(10, width-2))
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := userStyle.Render("You")
		if m.Role == project.RoleAssistant {
			label = assistantStyle.Render("Ensemble")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap.Render(m.Content))
	}
	return b.String()
}

func renderTasks(st project.State, selected int, focused bool) string {
	var b strings.Builder
	b.WriteString("Tasks\n")
	if len(st.Tasks) == 0 {
		b.WriteString(hintStyle.Render("No tasks yet."))
	}
	for i, t := range st.Tasks {
		box, title := "[ ]", t.Title
		if t.Status == project.StatusDone {
			box, title = "[x]", doneStyle.Render(t.Title)
		}
		line := fmt.Sprintf("%s %s", box, title)
		if focused && i == selected {
			line = cursorStyle.Render("›") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if st.HasRealDocumentURL() {
		b.WriteString("\n" + hintStyle.Render(st.DocumentURL))
	}
	return b.String()
}

// Run starts the program on the terminal and blocks until it quits.
func Run(ctx context.Context, seq *session.Sequencer, player *speech.Player) error {
	app := New(ctx, seq, player)
	defer app.Close()
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
