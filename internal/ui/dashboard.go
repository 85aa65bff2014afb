package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDashboard shows the admin overview or the trainee's progress,
// depending on the signed-in role.
func (m Model) renderDashboard() string {
	if !m.snapshot.HasUser {
		return m.renderEmpty("Loading profile...")
	}
	if m.snapshot.IsAdmin() {
		return m.renderAdminDashboard()
	}
	return m.renderTraineeDashboard()
}

func (m Model) renderAdminDashboard() string {
	dash := m.snapshot.AdminDashboard(m.now())
	height := m.contentHeight()
	leftWidth, rightWidth := m.splitWidths()

	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	stats := []string{
		bg.Space() + bg.Pair(padRight("Trainees", 18), fmt.Sprintf("%d", dash.Stats.TotalTrainees), styles, styles.Text.Bold(true)),
		bg.Space() + bg.Pair(padRight("Active modules", 18), fmt.Sprintf("%d", dash.Stats.ActiveModules), styles, styles.Text.Bold(true)),
		bg.Space() + bg.Pair(padRight("Attendance rate", 18), fmt.Sprintf("%.1f%%", dash.Stats.AttendanceRate), styles, m.rateStyle(dash.Stats.AttendanceRate)),
		"",
		bg.Space() + bg.Render(progressBar(dash.Stats.AttendanceRate, max(leftWidth-6, 10)), styles.SuccessText),
	}
	overview := m.renderTitledBox("Overview", strings.Join(stats, "\n"), leftWidth, height, true)
	if rightWidth == 0 {
		return overview
	}

	rows := make([]listRow, len(dash.Recent))
	for i, a := range dash.Recent {
		rows[i] = listRow{primary: a.Message, status: formatAgo(a.Time, m.now()), marker: activityMarker(a.Kind)}
	}
	recentBody := m.renderRows(rows, -1, rightWidth-2, height-2, m.theme.SurfaceAlt)
	if len(rows) == 0 {
		recentBody = NewBgStyle(m.theme.SurfaceAlt).Render(" No recent activity", styles.MutedText)
	}
	recent := m.renderTitledBox("Recent activity", recentBody, rightWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, overview, recent)
}

func activityMarker(kind string) string {
	switch kind {
	case "module":
		return "◆"
	case "attendance":
		return "✓"
	default:
		return "•"
	}
}

func (m Model) renderTraineeDashboard() string {
	dash := m.snapshot.TraineeDashboard()
	height := m.contentHeight()
	leftWidth, rightWidth := m.splitWidths()

	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	p, a := dash.Progress, dash.Assessments
	lines := []string{
		bg.Space() + bg.Pair(padRight("Progress", 18), fmt.Sprintf("%d%%", p.Overall), styles, styles.Text.Bold(true)),
		bg.Space() + bg.Render(progressBar(float64(p.Overall), max(leftWidth-6, 10)), styles.AccentText),
		bg.Space() + bg.Pair(padRight("Modules done", 18), fmt.Sprintf("%d / %d", p.CompletedModules, p.TotalModules), styles, styles.Text),
		"",
		bg.Space() + bg.Pair(padRight("Average score", 18), fmt.Sprintf("%d%%", a.AverageScore), styles, m.rateStyle(float64(a.AverageScore))),
		bg.Space() + bg.Pair(padRight("Assessments", 18), fmt.Sprintf("%d done, %d pending", a.Completed, a.Pending), styles, styles.Text),
	}
	overview := m.renderTitledBox("My progress", strings.Join(lines, "\n"), leftWidth, height, true)
	if rightWidth == 0 {
		return overview
	}

	rows := make([]listRow, len(dash.Upcoming))
	for i, mod := range dash.Upcoming {
		rows[i] = listRow{primary: mod.Name, detail: formatDate(mod.Created), status: mod.Status}
	}
	body := m.renderRows(rows, -1, rightWidth-2, height-2, m.theme.SurfaceAlt)
	if len(rows) == 0 {
		body = NewBgStyle(m.theme.SurfaceAlt).Render(" Nothing scheduled", styles.MutedText)
	}
	upcoming := m.renderTitledBox("Upcoming sessions", body, rightWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, overview, upcoming)
}

// rateStyle colors a percentage: green at 80 and above, amber from 50.
func (m Model) rateStyle(pct float64) lipgloss.Style {
	styles := m.theme.Styles()
	switch {
	case pct >= 80:
		return styles.SuccessText
	case pct >= 50:
		return styles.WarningText
	default:
		return styles.DangerText
	}
}

// progressBar renders pct (0-100) as a fixed-width block bar.
func progressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
