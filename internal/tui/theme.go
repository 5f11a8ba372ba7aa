package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/example/roombook/internal/api"
)

// Theme defines the color palette for the terminal UI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Booking status colors.
	StatusPending   lipgloss.Color
	StatusApproved  lipgloss.Color
	StatusRejected  lipgloss.Color
	StatusCancelled lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color

	// Calendar cells.
	TodayBackground lipgloss.Color
	EventMarker     lipgloss.Color
}

// StatusColor returns the color for a booking status. Unknown values
// render faint.
func (theme Theme) StatusColor(status api.BookingStatus) lipgloss.Color {
	switch status {
	case api.StatusPending:
		return theme.StatusPending
	case api.StatusApproved:
		return theme.StatusApproved
	case api.StatusRejected:
		return theme.StatusRejected
	case api.StatusCancelled:
		return theme.StatusCancelled
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusPending:   lipgloss.Color("220"), // amber
	StatusApproved:  lipgloss.Color("114"), // green
	StatusRejected:  lipgloss.Color("196"), // red
	StatusCancelled: lipgloss.Color("245"), // gray

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("203"),

	TodayBackground: lipgloss.Color("237"),
	EventMarker:     lipgloss.Color("75"),
}
