package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit          key.Binding
	Help          key.Binding
	CycleTheme    key.Binding
	Tab           key.Binding
	ShiftTab      key.Binding
	Escape        key.Binding
	ToggleOffline key.Binding

	// View switching
	ViewDashboard   key.Binding
	ViewModules     key.Binding
	ViewAttendance  key.Binding
	ViewAssessments key.Binding
	ViewMessages    key.Binding
	ViewLogs        key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Record actions
	New          key.Binding
	ToggleStatus key.Binding
	Delete       key.Binding
	CycleMark    key.Binding
	Confirm      key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close / dashboard"),
		),
		ToggleOffline: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Go offline / online"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Dashboard"),
		),
		ViewModules: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Modules"),
		),
		ViewAttendance: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Attendance"),
		),
		ViewAssessments: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Assessments"),
		),
		ViewMessages: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Messages"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New module / message"),
		),
		ToggleStatus: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Toggle completed"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Delete module"),
		),
		CycleMark: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Cycle attendance"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open / mark read"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle minimum level"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.ViewDashboard, k.ViewModules, k.ViewAttendance, k.ViewAssessments, k.ViewMessages, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.New, k.ToggleStatus, k.Delete, k.CycleMark, k.Confirm},
		{k.ToggleFollow, k.CycleLevel},
		{k.ToggleOffline, k.CycleTheme, k.Help, k.Quit},
	}
}
