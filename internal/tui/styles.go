package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	phaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	bodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Strikethrough(true)
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)
	focusedPaneStyle = paneStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
)
