package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/calendar"
	"github.com/example/roombook/internal/workflow"
)

const dayCellWidth = 10

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.activeTab {
	case TabCalendar:
		b.WriteString(m.renderCalendar())
	default:
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	if m.confirm != nil {
		b.WriteString("\n")
		b.WriteString(m.renderConfirm())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.deps.Settings.Get("site_name", "Room Booking")

	tabs := []struct {
		tab   Tab
		label string
	}{
		{TabCalendar, "1 calendar"},
		{TabMine, "2 my bookings"},
	}
	if m.isAdmin() {
		tabs = append(tabs, struct {
			tab   Tab
			label string
		}{TabManage, "3 manage"})
	}

	active := lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	titleStyle := active
	if color := m.deps.Settings.Get("theme_color", ""); color != "" {
		titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}

	parts := make([]string, 0, len(tabs)+1)
	parts = append(parts, titleStyle.Render(title))
	for _, t := range tabs {
		style := inactive
		if t.tab == m.activeTab {
			style = active
		}
		parts = append(parts, style.Render(t.label))
	}

	if identity, ok := m.identity(); ok {
		who := fmt.Sprintf("%s (%s)", identity.Username, identity.Role)
		parts = append(parts, inactive.Render(who))
	}
	return strings.Join(parts, "  ")
}

// renderCalendar draws the month grid next to the selected day's agenda.
func (m Model) renderCalendar() string {
	grid := m.renderMonthGrid()
	agenda := m.renderAgenda()
	return lipgloss.JoinHorizontal(lipgloss.Top, grid, "  ", agenda)
}

func (m Model) renderMonthGrid() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	b.WriteString(headerStyle.Render(m.window.Start.Format("January 2006")))
	b.WriteString("\n")
	for _, name := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		b.WriteString(faint.Render(padCell(name)))
	}
	b.WriteString("\n")

	counts := eventCountsByDay(m.events)
	today := dayOf(m.now())

	// The grid starts on the Monday at or before the 1st.
	cursor := calendar.WeekWindow(m.window.Start).Start
	for cursor.Before(m.window.End) {
		for i := 0; i < 7; i++ {
			b.WriteString(m.renderDayCell(cursor, counts, today))
			cursor = cursor.AddDate(0, 0, 1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDayCell(day time.Time, counts map[string]int, today time.Time) string {
	inMonth := !day.Before(m.window.Start) && day.Before(m.window.End)

	label := fmt.Sprintf("%2d", day.Day())
	if n := counts[dayKey(day)]; n > 0 && inMonth {
		label += fmt.Sprintf(" •%d", n)
	}

	style := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	switch {
	case !inMonth:
		style = style.Foreground(m.theme.FaintText)
	case day.Equal(m.selectedDay):
		style = style.
			Background(m.theme.SelectedBackground).
			Foreground(m.theme.SelectedForeground).
			Bold(true)
	case day.Equal(today):
		style = style.Background(m.theme.TodayBackground)
	}
	return style.Render(padCell(label))
}

func padCell(s string) string {
	if len(s) >= dayCellWidth {
		return s[:dayCellWidth]
	}
	return s + strings.Repeat(" ", dayCellWidth-len(s))
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func eventCountsByDay(events []calendar.Event) map[string]int {
	counts := make(map[string]int, len(events))
	for _, e := range events {
		counts[dayKey(e.Start)]++
	}
	return counts
}

// renderAgenda lists the selected day's events with their room colors.
func (m Model) renderAgenda() string {
	var b strings.Builder
	header := lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	b.WriteString(header.Render(m.selectedDay.Format("Mon 2 Jan")))
	b.WriteString("\n")

	shown := 0
	for _, e := range m.events {
		if dayKey(e.Start) != dayKey(m.selectedDay) {
			continue
		}
		marker := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("■")
		line := fmt.Sprintf("%s %s–%s  %s", marker,
			e.Start.Format("15:04"), e.End.Format("15:04"), e.Title)
		if e.Booking.Room != nil && e.Booking.Room.RoomName != "" {
			line += faint.Render("  " + e.Booking.Room.RoomName)
		}
		b.WriteString(line)
		b.WriteString("\n")
		shown++
	}
	if shown == 0 {
		b.WriteString(faint.Render("no approved bookings"))
		b.WriteString("\n")
	}
	return b.String()
}

// renderList draws the active booking list with a detail pane for the
// selected row beneath it.
func (m Model) renderList() string {
	var b strings.Builder
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	if len(m.bookings) == 0 {
		if m.loading {
			return faint.Render("fetching bookings...")
		}
		return faint.Render("no bookings")
	}

	for i, booking := range m.bookings {
		b.WriteString(m.renderBookingRow(booking, i == m.cursor))
		b.WriteString("\n")
	}

	if selected, ok := m.selectedBooking(); ok {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(selected))
	}
	return b.String()
}

func (m Model) renderBookingRow(b api.Booking, selected bool) string {
	statusStyle := lipgloss.NewStyle().Foreground(m.theme.StatusColor(b.Status))
	row := fmt.Sprintf("#%-5d %-9s %s  %s",
		b.ID,
		b.Status,
		b.StartTime.Format("2006-01-02 15:04"),
		b.Subject,
	)
	if selected {
		return lipgloss.NewStyle().
			Background(m.theme.SelectedBackground).
			Foreground(m.theme.SelectedForeground).
			Render("› " + row)
	}
	return "  " + statusStyle.Render(row)
}

// renderDetail shows the selected booking's fields and which actions the
// current identity may take on it.
func (m Model) renderDetail(b api.Booking) string {
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	var lines []string

	lines = append(lines, fmt.Sprintf("%s — %s", b.Subject, b.Status))
	lines = append(lines, fmt.Sprintf("%s to %s",
		b.StartTime.Format("2006-01-02 15:04"),
		b.EndTime.Format("2006-01-02 15:04")))
	if b.Room != nil && b.Room.RoomName != "" {
		lines = append(lines, "room: "+b.Room.RoomName)
	}
	if b.User != nil && b.User.FullName != "" {
		lines = append(lines, "requested by: "+b.User.FullName)
	}
	if b.Department != "" {
		lines = append(lines, "department: "+b.Department)
	}
	if b.Attendees > 0 {
		lines = append(lines, fmt.Sprintf("attendees: %d", b.Attendees))
	}
	if b.ResourceText != "" {
		lines = append(lines, "resources: "+b.ResourceText)
	}
	if b.Note != "" {
		lines = append(lines, "note: "+b.Note)
	}

	if identity, ok := m.identity(); ok {
		controls := workflow.Controls(identity, b)
		hints := make([]string, 0, len(controls))
		for _, action := range controls {
			// Editing is a flag-driven flow that lives in the CLI; the
			// detail pane only advertises actions it can run itself.
			if action == workflow.ActionEdit {
				continue
			}
			hints = append(hints, m.actionHint(action))
		}
		if len(hints) > 0 {
			lines = append(lines, faint.Render(strings.Join(hints, "  ")))
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(m.theme.BorderColor).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) actionHint(action workflow.Action) string {
	switch action {
	case workflow.ActionApprove:
		return "a approve"
	case workflow.ActionReject:
		return "x reject"
	case workflow.ActionCancel:
		return "c cancel"
	case workflow.ActionDelete:
		return "d delete"
	default:
		return string(action)
	}
}

func (m Model) renderStatusBar() string {
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText)

	if m.notice != "" {
		style := help
		if m.noticeIsError {
			style = lipgloss.NewStyle().Foreground(m.theme.ErrorText)
		}
		return style.Render(m.notice)
	}
	if m.loading {
		return m.spinner.View() + help.Render(" loading")
	}

	switch m.activeTab {
	case TabCalendar:
		return help.Render("h/l day  j/k week  p/n month  t today  2 my bookings  q quit")
	default:
		return help.Render("j/k move  R refresh  1 calendar  q quit")
	}
}

func (m Model) renderConfirm() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(m.theme.ErrorText).
		Padding(0, 1)
	text := fmt.Sprintf("Permanently delete approved booking #%d %q? (y/esc)",
		m.confirm.booking.ID, m.confirm.booking.Subject)
	return style.Render(text)
}
