package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cohort/internal/prefs"
	"github.com/five82/cohort/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewModules
	ViewAttendance
	ViewAssessments
	ViewMessages
	ViewLogs
	viewCount
)

var viewNames = [viewCount]string{"dashboard", "modules", "attendance", "assessments", "messages", "logs"}

// String returns the name persisted in prefs.
func (v View) String() string {
	if v < 0 || v >= viewCount {
		return viewNames[ViewDashboard]
	}
	return viewNames[v]
}

// ParseView maps a prefs name back to a View. Unknown names get the dashboard.
func ParseView(name string) View {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range viewNames {
		if n == name {
			return View(i)
		}
	}
	return ViewDashboard
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Store      *state.Store
	Actions    Actions
	Connection Connection
	LogPath    string
	PollTick   time.Duration
	ThemeName  string
	ViewName   string
	LogLevel   string
	PrefsPath  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	actions   Actions
	conn      Connection
	logPath   string
	prefsPath string
	pollTick  time.Duration
	now       func() time.Time
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Per-view row selection
	cursor [viewCount]int

	// Status line
	status    string
	statusErr bool

	logs logState

	modal    Modal
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		actions:     opts.Actions,
		conn:        opts.Connection,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.ThemeName),
		currentView: ParseView(opts.ViewName),
	}
	m.initLogState(opts.LogLevel)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, m.refreshLogs())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		m.clampCursors()
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case actionResultMsg:
		m.setStatus(msg)
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m *Model) setStatus(res actionResultMsg) {
	if res.err != nil {
		m.status = res.err.Error()
		m.statusErr = true
		return
	}
	m.status = res.text
	m.statusErr = false
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.logs.dirty = true
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.currentView + 1) % viewCount)

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView((m.currentView + viewCount - 1) % viewCount)

	case key.Matches(msg, m.keys.ViewDashboard):
		return m.switchView(ViewDashboard)
	case key.Matches(msg, m.keys.ViewModules):
		return m.switchView(ViewModules)
	case key.Matches(msg, m.keys.ViewAttendance):
		return m.switchView(ViewAttendance)
	case key.Matches(msg, m.keys.ViewAssessments):
		return m.switchView(ViewAssessments)
	case key.Matches(msg, m.keys.ViewMessages):
		return m.switchView(ViewMessages)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)

	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewDashboard)

	case key.Matches(msg, m.keys.ToggleOffline):
		if m.conn == nil {
			return m, nil
		}
		return m, m.toggleOffline()
	}

	switch m.currentView {
	case ViewModules:
		return m.handleModulesKey(msg)
	case ViewAttendance:
		return m.handleAttendanceKey(msg)
	case ViewAssessments:
		return m.handleListKey(msg)
	case ViewMessages:
		return m.handleMessagesKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v == m.currentView {
		return m, nil
	}
	m.currentView = v
	m.savePrefs()
	if v == ViewLogs {
		return m, m.refreshLogs()
	}
	return m, nil
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:    m.theme.Name,
		View:     m.currentView.String(),
		LogLevel: m.logs.minLevel,
	})
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if m.currentView == ViewLogs && m.logs.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the full UI: header, command bar, content, status line.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())

	return b.String()
}

// contentHeight is what remains after header, command bar and status line.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard:
		return m.renderDashboard()
	case ViewModules:
		return m.renderModules()
	case ViewAttendance:
		return m.renderAttendance()
	case ViewAssessments:
		return m.renderAssessments()
	case ViewMessages:
		return m.renderMessages()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
