package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cohort/internal/logtail"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// logState holds all log-related state.
type logState struct {
	viewport viewport.Model
	entries  []logtail.Entry
	follow   bool
	minLevel string
	err      error
	dirty    bool
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

func (m *Model) initLogState(level string) {
	if !slices.Contains(logLevels, level) {
		level = "info"
	}
	m.logs = logState{
		viewport: viewport.New(0, 0),
		follow:   true,
		minLevel: level,
	}
}

// refreshLogs reads the tail of the client log off the update loop.
func (m Model) refreshLogs() tea.Cmd {
	path, level := m.logPath, m.logs.minLevel
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLines, level)
		return logsMsg{entries: entries, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logs.err = msg.err
	if msg.err == nil {
		m.logs.entries = msg.entries
	}
	m.logs.dirty = true
	m.updateLogViewport()
}

// updateLogViewport sizes the viewport and re-renders content when it changed.
func (m *Model) updateLogViewport() {
	// Box inner = content height - 2 borders
	m.logs.viewport.Width = max(m.width-4, 0)
	m.logs.viewport.Height = max(m.contentHeight()-2, 0)
	m.logs.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logs.dirty {
		m.logs.viewport.SetContent(m.renderLogContent())
		m.logs.dirty = false
	}
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) renderLogs() string {
	if m.logPath == "" {
		return m.renderEmpty("Logging to file is disabled")
	}
	title := "Client log · level ≥ " + m.logs.minLevel
	if m.logs.follow {
		title += " · following"
	}
	return m.renderTitledBox(title, m.logs.viewport.View(), m.width, m.contentHeight(), true)
}

func (m Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	if m.logs.err != nil {
		return bg.Render("log unavailable: "+m.logs.err.Error(), styles.DangerText)
	}
	if len(m.logs.entries) == 0 {
		return bg.Render("no log entries", styles.MutedText)
	}

	lines := make([]string, 0, len(m.logs.entries))
	for _, e := range m.logs.entries {
		lines = append(lines, m.formatLogEntry(e, bg, styles))
	}
	return strings.Join(lines, "\n")
}

// formatLogEntry renders "15:04:05 LEVEL prefix: message key=value ...".
func (m Model) formatLogEntry(e logtail.Entry, bg BgStyle, styles Styles) string {
	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, bg.Render(e.Time.Local().Format("15:04:05"), styles.FaintText))
	}
	if e.Level != "" {
		parts = append(parts, bg.Render(padRight(strings.ToUpper(e.Level), 5), m.levelStyle(e.Level, styles)))
	}
	msg := e.Message
	if e.Prefix != "" {
		msg = e.Prefix + ": " + msg
	}
	parts = append(parts, bg.Render(msg, styles.Text))
	for _, f := range e.Fields {
		parts = append(parts, bg.Render(f.Key+"=", styles.FaintText)+bg.Render(f.Value, styles.MutedText))
	}
	return strings.Join(parts, bg.Space())
}

func (m Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch logtail.Rank(level) {
	case 0:
		return styles.FaintText
	case 2:
		return styles.WarningText
	case 3, 4:
		return styles.DangerText
	default:
		return styles.InfoText
	}
}

func nextLogLevel(current string) string {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logs.minLevel = nextLogLevel(m.logs.minLevel)
		m.savePrefs()
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Top):
		m.logs.viewport.GotoTop()
		m.logs.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logs.viewport.GotoBottom()
		m.logs.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logs.viewport.ScrollDown(1)
		m.logs.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logs.viewport.ScrollUp(1)
		m.logs.follow = false
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logs.viewport.HalfPageDown()
		m.logs.follow = false
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logs.viewport.HalfPageUp()
		m.logs.follow = false
	}
	return m, nil
}
