package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐. Focused boxes use BorderFocus and FocusBg.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr, bgColorStr := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColorStr, bgColorStr = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().
		Width(innerWidth).
		MaxWidth(innerWidth).
		Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}

// listRow is one line of a record list: a primary label, muted detail and a
// status colored by the theme.
type listRow struct {
	primary string
	detail  string
	status  string
	marker  string
}

// renderRows renders rows inside a pane, keeping the selected row visible.
func (m Model) renderRows(rows []listRow, selected, width, height int, bgColor string) string {
	if len(rows) == 0 {
		return ""
	}
	start := 0
	if height > 0 && selected >= height {
		start = selected - height + 1
	}
	end := len(rows)
	if height > 0 {
		end = min(end, start+height)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rowBg := bgColor
		if i == selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatRow(rows[i], width, rowBg, i == selected)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatRow lays out "marker primary · detail   status". Selected rows use
// SelectionText throughout for contrast.
func (m Model) formatRow(row listRow, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	markerStyle := styles.AccentText
	primaryStyle := styles.Text
	detailStyle := styles.MutedText
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(row.status)))
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		markerStyle, primaryStyle, detailStyle, statusStyle = sel.Bold(true), sel, sel, sel
	}

	marker := row.marker
	if marker == "" {
		marker = " "
	}
	statusWidth := lipgloss.Width(row.status)
	avail := max(width-statusWidth-4, 10)
	primary := truncate(row.primary, avail)
	detail := ""
	if row.detail != "" {
		if rest := avail - lipgloss.Width(primary) - 3; rest > 4 {
			detail = truncate(row.detail, rest)
		}
	}

	left := bg.Render(marker, markerStyle) + bg.Space() + bg.Render(primary, primaryStyle)
	leftWidth := 2 + lipgloss.Width(primary)
	if detail != "" {
		left += bg.Render(" · ", detailStyle) + bg.Render(detail, detailStyle)
		leftWidth += 3 + lipgloss.Width(detail)
	}
	gap := max(width-leftWidth-statusWidth-1, 1)
	return left + bg.Spaces(gap) + bg.Render(row.status, statusStyle)
}

// renderEmpty centers a muted message in the content area.
func (m Model) renderEmpty(text string) string {
	styles := m.theme.Styles()
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
		styles.MutedText.Render(text))
}

// splitWidths returns list and detail pane widths, or the full width and 0
// when the terminal is too narrow for two panes.
func (m Model) splitWidths() (int, int) {
	if m.width < LayoutSplitWidth {
		return m.width, 0
	}
	list := m.width * 45 / 100
	return list, m.width - list
}
