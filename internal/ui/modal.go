package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type formField struct {
	key   string
	label string
	input textinput.Model
}

// formModal collects a few text fields and hands them to submit on enter
// from the last field.
type formModal struct {
	title  string
	fields []formField
	focus  int
	submit func(map[string]string) tea.Cmd
}

func newFormField(key, label, placeholder string, limit int) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return formField{key: key, label: label, input: ti}
}

func newForm(title string, submit func(map[string]string) tea.Cmd, fields ...formField) *formModal {
	f := &formModal{title: title, fields: fields, submit: submit}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

func newModuleForm(submit func(map[string]string) tea.Cmd) *formModal {
	return newForm("New module", submit,
		newFormField("name", "Name", "Rigging basics", 100),
		newFormField("description", "Description", "optional", 2000),
	)
}

func newMessageForm(to string, submit func(map[string]string) tea.Cmd) *formModal {
	f := newForm("New message", submit,
		newFormField("to", "To (user id)", "admin", 64),
		newFormField("subject", "Subject", "", 200),
		newFormField("body", "Body", "", 5000),
	)
	if to != "" {
		f.fields[0].input.SetValue(to)
		f.setFocus(1)
	}
	return f
}

func (f *formModal) setFocus(i int) {
	f.fields[f.focus].input.Blur()
	f.focus = (i + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

// Values returns the trimmed field values by key.
func (f *formModal) Values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		out[field.key] = strings.TrimSpace(field.input.Value())
	}
	return out
}

// Update implements Modal.
func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return f, nil, true
		case km.Type == tea.KeyTab, km.Type == tea.KeyDown:
			f.setFocus(f.focus + 1)
			return f, nil, false
		case km.Type == tea.KeyShiftTab, km.Type == tea.KeyUp:
			f.setFocus(f.focus - 1)
			return f, nil, false
		case key.Matches(km, keys.Confirm):
			if f.focus < len(f.fields)-1 {
				f.setFocus(f.focus + 1)
				return f, nil, false
			}
			var cmd tea.Cmd
			if f.submit != nil {
				cmd = f.submit(f.Values())
			}
			return f, cmd, true
		}
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd, false
}

// View implements Modal.
func (f *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	inner := 48

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", inner)))
	b.WriteString("\n\n")

	for i, field := range f.fields {
		labelStyle := styles.MutedText
		if i == f.focus {
			labelStyle = styles.AccentText.Bold(true)
		}
		b.WriteString(labelStyle.Render(field.label))
		b.WriteString("\n")
		field.input.Width = inner
		b.WriteString(field.input.View())
		b.WriteString("\n\n")
	}
	b.WriteString(styles.FaintText.Render("tab next · enter submit · esc cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(inner + 6).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
