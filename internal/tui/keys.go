package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the booking TUI.
type KeyMap struct {
	// Navigation. On the calendar tab left/right move the selected day;
	// on list tabs up/down move the cursor.
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Calendar paging.
	PrevMonth key.Binding
	NextMonth key.Binding
	Today     key.Binding

	// Tab switching.
	TabCalendar key.Binding
	TabMine     key.Binding
	TabManage   key.Binding

	// Booking actions. Availability depends on role and booking status.
	Approve key.Binding
	Reject  key.Binding
	Cancel  key.Binding
	Delete  key.Binding

	// Confirmation overlay.
	Confirm key.Binding
	Dismiss key.Binding

	Refresh key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// alongside standard arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "previous day"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next day"),
	),
	PrevMonth: key.NewBinding(
		key.WithKeys("p", "pgup"),
		key.WithHelp("p", "previous month"),
	),
	NextMonth: key.NewBinding(
		key.WithKeys("n", "pgdown"),
		key.WithHelp("n", "next month"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	TabCalendar: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "calendar"),
	),
	TabMine: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "my bookings"),
	),
	TabManage: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "manage"),
	),
	Approve: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "approve"),
	),
	Reject: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "reject"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc", "N"),
		key.WithHelp("esc", "dismiss"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
