package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cohort/internal/realtime"
	"github.com/five82/cohort/internal/state"
)

// connectionLabel names the connection indicator and the status key its
// color comes from.
func connectionLabel(snap state.Snapshot) (label, status string) {
	cs := snap.Connection
	switch {
	case cs.Suspended:
		return "PAUSED", "paused"
	case snap.IsOffline():
		return "OFFLINE", "offline"
	case cs.Quality == realtime.QualitySlow:
		if cs.Latency > 0 {
			return fmt.Sprintf("SLOW %dms", cs.Latency.Milliseconds()), "slow"
		}
		return "SLOW", "slow"
	default:
		return "LIVE", "good"
	}
}

// renderHeader renders the status bar: logo, user, connection and counts.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("cohort", styles.Logo)}

	label, status := connectionLabel(snap)
	connStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(status))).Bold(true)
	parts = append(parts, bg.Render("● "+label, connStyle))

	if snap.HasUser {
		who := snap.User.Name
		if who == "" {
			who = snap.User.Email
		}
		parts = append(parts, bg.Render(truncate(who, 24), styles.Text)+bg.Space()+
			bg.Render("("+string(snap.User.Role)+")", styles.FaintText))
	} else {
		parts = append(parts, bg.Render("Signing in...", styles.WarningText))
	}

	if snap.IsAdmin() {
		parts = append(parts, bg.Pair("Trainees:", fmt.Sprintf("%d", len(snap.Trainees)), styles, styles.Text))
	}

	unreadStyle := styles.MutedText
	if n := snap.Unread(); n > 0 {
		unreadStyle = styles.AccentText.Bold(true)
	}
	parts = append(parts, bg.Pair("Inbox:", fmt.Sprintf("%d", snap.Unread()), styles, unreadStyle))

	if !compact && !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("updated "+snap.LastUpdated.Local().Format("15:04:05"), styles.MutedText))
	}

	if snap.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

var viewTitles = [viewCount]string{"Dashboard", "Modules", "Attendance", "Assessments", "Messages", "Logs"}

// renderCommandBar shows view tabs and the keys that apply to the current view.
func (m Model) renderCommandBar() string {
	bg := NewBgStyle(m.theme.Surface)
	styles := m.theme.Styles()
	keyStyle := styles.WarningText.Bold(true)

	tabs := make([]string, 0, viewCount)
	for v := View(0); v < viewCount; v++ {
		title := fmt.Sprintf("%d %s", v+1, viewTitles[v])
		if v == m.currentView {
			tabs = append(tabs, bg.Render(title, styles.AccentText.Bold(true).Underline(true)))
		} else {
			tabs = append(tabs, bg.Render(title, styles.MutedText))
		}
	}

	var segs []string
	for _, b := range m.viewBindings() {
		h := b.Help()
		segs = append(segs, bg.Render(h.Key, keyStyle)+bg.Render(":"+h.Desc, styles.MutedText))
	}

	line := bg.Join(tabs, " ")
	if len(segs) > 0 {
		line += bg.Spaces(3) + bg.Join(segs, "  ")
	}
	return bg.FillLine(line, m.width)
}

// viewBindings lists the view-specific keys shown in the command bar.
func (m Model) viewBindings() []key.Binding {
	admin := m.snapshot.IsAdmin()
	var out []key.Binding
	switch m.currentView {
	case ViewModules:
		if admin {
			out = append(out, m.keys.New, m.keys.ToggleStatus, m.keys.Delete)
		}
	case ViewAttendance:
		if admin {
			out = append(out, m.keys.CycleMark)
		}
	case ViewMessages:
		out = append(out, m.keys.New, m.keys.Confirm)
	case ViewLogs:
		out = append(out, m.keys.ToggleFollow, m.keys.CycleLevel)
	}
	return append(out, m.keys.ToggleOffline, m.keys.Help)
}

// renderStatusLine shows the last action result, or a hint.
func (m Model) renderStatusLine() string {
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles()

	var content string
	switch {
	case m.status != "" && m.statusErr:
		content = bg.Render("!", styles.DangerText) + bg.Space() +
			bg.Render(truncate(m.status, max(m.width-4, 10)), styles.DangerText)
	case m.status != "":
		content = bg.Render(truncate(m.status, max(m.width-2, 10)), styles.SuccessText)
	default:
		content = bg.Render(m.hint(), styles.FaintText)
	}
	return bg.FillLine(bg.Space()+content, m.width)
}

func (m Model) hint() string {
	cs := m.snapshot.Connection
	if cs.ConsecutiveErrors > 0 && !cs.LastErrorAt.IsZero() {
		return fmt.Sprintf("%d listener errors, last %s", cs.ConsecutiveErrors, formatAgo(cs.LastErrorAt, m.now()))
	}
	if m.lastUpdated.IsZero() {
		return "waiting for data"
	}
	return strings.Join([]string{"tab switch view", "h help", "e quit"}, " · ")
}
