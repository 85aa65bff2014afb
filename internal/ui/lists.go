package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cohort/internal/training"
)

func (m Model) rowCount(v View) int {
	switch v {
	case ViewModules:
		return len(m.snapshot.Modules)
	case ViewAttendance:
		return len(m.snapshot.Attendance)
	case ViewAssessments:
		return len(m.snapshot.Assessments)
	case ViewMessages:
		return len(m.snapshot.Messages)
	default:
		return 0
	}
}

// clampCursors keeps every selection inside its list after a snapshot
// shrinks it.
func (m *Model) clampCursors() {
	for v := View(0); v < viewCount; v++ {
		n := m.rowCount(v)
		switch {
		case n == 0:
			m.cursor[v] = 0
		case m.cursor[v] >= n:
			m.cursor[v] = n - 1
		}
	}
}

// handleListKey moves the selection in the current list view.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.rowCount(m.currentView)
	if n == 0 {
		return m, nil
	}
	cur := m.cursor[m.currentView]
	half := max(m.contentHeight()/2, 1)

	switch {
	case key.Matches(msg, m.keys.Down):
		cur++
	case key.Matches(msg, m.keys.Up):
		cur--
	case key.Matches(msg, m.keys.Top):
		cur = 0
	case key.Matches(msg, m.keys.Bottom):
		cur = n - 1
	case key.Matches(msg, m.keys.HalfPageDown):
		cur += half
	case key.Matches(msg, m.keys.HalfPageUp):
		cur -= half
	}
	m.cursor[m.currentView] = min(max(cur, 0), n-1)
	return m, nil
}

// requireAdmin reports whether the user may edit shared records, setting
// the status line when not.
func (m *Model) requireAdmin() bool {
	if m.snapshot.IsAdmin() {
		return true
	}
	m.status = "only admins can change this"
	m.statusErr = true
	return false
}

func (m Model) selectedModule() (training.Module, bool) {
	mods := m.snapshot.Modules
	i := m.cursor[ViewModules]
	if i < 0 || i >= len(mods) {
		return training.Module{}, false
	}
	return mods[i], true
}

func (m Model) selectedAttendance() (training.Attendance, bool) {
	recs := m.snapshot.Attendance
	i := m.cursor[ViewAttendance]
	if i < 0 || i >= len(recs) {
		return training.Attendance{}, false
	}
	return recs[i], true
}

func (m Model) selectedMessage() (training.Message, bool) {
	msgs := m.snapshot.Messages
	i := m.cursor[ViewMessages]
	if i < 0 || i >= len(msgs) {
		return training.Message{}, false
	}
	return msgs[i], true
}

func (m Model) handleModulesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.actions == nil {
		return m.handleListKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.New):
		if !m.requireAdmin() {
			return m, nil
		}
		m.modal = newModuleForm(m.createModule)
		return m, nil

	case key.Matches(msg, m.keys.ToggleStatus):
		if !m.requireAdmin() {
			return m, nil
		}
		if mod, ok := m.selectedModule(); ok {
			return m, m.toggleModuleStatus(mod)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if !m.requireAdmin() {
			return m, nil
		}
		if mod, ok := m.selectedModule(); ok {
			return m, m.deleteModule(mod)
		}
		return m, nil
	}
	return m.handleListKey(msg)
}

func (m Model) handleAttendanceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.actions != nil && key.Matches(msg, m.keys.CycleMark) {
		if !m.requireAdmin() {
			return m, nil
		}
		if rec, ok := m.selectedAttendance(); ok {
			return m, m.cycleAttendance(rec)
		}
		return m, nil
	}
	return m.handleListKey(msg)
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.actions == nil {
		return m.handleListKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.New):
		to := ""
		if sel, ok := m.selectedMessage(); ok {
			to = sel.SenderID
		}
		m.modal = newMessageForm(to, m.sendMessage)
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if sel, ok := m.selectedMessage(); ok {
			return m, m.markRead(sel)
		}
		return m, nil
	}
	return m.handleListKey(msg)
}

// Views

func (m Model) renderModules() string {
	mods := m.snapshot.Modules
	if len(mods) == 0 {
		return m.renderEmpty("No modules yet")
	}
	rows := make([]listRow, len(mods))
	for i, mod := range mods {
		rows[i] = listRow{
			primary: mod.Name,
			detail:  formatAgo(mod.Updated, m.now()),
			status:  mod.Status,
		}
	}
	title := fmt.Sprintf("Modules (%d)", len(mods))
	mod, _ := m.selectedModule()
	return m.renderListWithDetail(title, rows, mod.Name, m.moduleDetail(mod))
}

func (m Model) moduleDetail(mod training.Module) []detailLine {
	return []detailLine{
		{label: "Status", value: mod.Status, status: true},
		{label: "Created", value: formatDate(mod.Created)},
		{label: "Updated", value: formatDate(mod.Updated)},
		{label: "", value: ""},
		{label: "", value: orDash(mod.Description)},
	}
}

func (m Model) renderAttendance() string {
	recs := m.snapshot.Attendance
	if len(recs) == 0 {
		return m.renderEmpty("No attendance recorded")
	}
	rows := make([]listRow, len(recs))
	for i, a := range recs {
		name := a.TraineeName
		if name == "" {
			name = a.TraineeID
		}
		rows[i] = listRow{
			primary: a.Date + "  " + name,
			detail:  a.Module,
			status:  a.Status,
		}
	}
	return m.renderFullList(fmt.Sprintf("Attendance (%d)", len(recs)), rows)
}

func (m Model) renderAssessments() string {
	list := m.snapshot.Assessments
	if len(list) == 0 {
		return m.renderEmpty("No assessments")
	}
	scores := make(map[string]string, len(m.snapshot.Grades))
	for _, g := range m.snapshot.Grades {
		if g.Score != nil && g.MaxScore > 0 {
			scores[g.AssessmentID] = fmt.Sprintf("%.0f/%.0f", *g.Score, g.MaxScore)
		}
	}
	rows := make([]listRow, len(list))
	for i, a := range list {
		detail := a.Module
		if s, ok := scores[a.ID]; ok {
			detail += "  " + s
		}
		if a.Date != "" {
			detail = a.Date + "  " + detail
		}
		rows[i] = listRow{primary: a.Title, detail: detail, status: a.Status}
	}
	return m.renderFullList(fmt.Sprintf("Assessments (%d)", len(list)), rows)
}

func (m Model) renderMessages() string {
	msgs := m.snapshot.Messages
	if len(msgs) == 0 {
		return m.renderEmpty("Inbox is empty")
	}
	rows := make([]listRow, len(msgs))
	for i, msg := range msgs {
		status := "read"
		marker := ""
		if !msg.Read {
			status = "unread"
			marker = "●"
		}
		rows[i] = listRow{
			primary: orDash(msg.Subject),
			detail:  msg.SenderName + " " + formatAgo(msg.Date, m.now()),
			status:  status,
			marker:  marker,
		}
	}
	title := fmt.Sprintf("Inbox (%d unread)", m.snapshot.Unread())
	sel, _ := m.selectedMessage()
	detail := []detailLine{
		{label: "From", value: orDash(sel.SenderName)},
		{label: "Date", value: formatDate(sel.Date)},
		{label: "", value: ""},
	}
	for _, line := range strings.Split(sel.Body, "\n") {
		detail = append(detail, detailLine{value: line})
	}
	return m.renderListWithDetail(title, rows, orDash(sel.Subject), detail)
}

func (m Model) renderFullList(title string, rows []listRow) string {
	height := m.contentHeight()
	body := m.renderRows(rows, m.cursor[m.currentView], m.width-2, height-2, m.theme.FocusBg)
	return m.renderTitledBox(title, body, m.width, height, true)
}

// detailLine is one "label value" line of a detail pane. A blank label
// renders the value as free text.
type detailLine struct {
	label  string
	value  string
	status bool
}

func (m Model) renderListWithDetail(title string, rows []listRow, detailTitle string, detail []detailLine) string {
	height := m.contentHeight()
	listWidth, detailWidth := m.splitWidths()
	list := m.renderTitledBox(title,
		m.renderRows(rows, m.cursor[m.currentView], listWidth-2, height-2, m.theme.FocusBg),
		listWidth, height, true)
	if detailWidth == 0 {
		return list
	}

	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()
	inner := detailWidth - 4
	lines := make([]string, 0, len(detail))
	for _, d := range detail {
		if d.label == "" {
			lines = append(lines, bg.Space()+bg.Render(truncate(d.value, inner), styles.Text))
			continue
		}
		valueStyle := styles.Text
		if d.status {
			valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(d.value)))
		}
		lines = append(lines, bg.Space()+bg.Pair(padRight(d.label, 8), truncate(d.value, inner-9), styles, valueStyle))
	}
	pane := m.renderTitledBox(detailTitle, strings.Join(lines, "\n"), detailWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, pane)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
