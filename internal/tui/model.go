// Package tui is the interactive terminal front end: a shared calendar of
// approved bookings plus list views for the user's own requests and, for
// administrators, the full management queue. All network work runs as
// asynchronous bubbletea commands so the interface never blocks on the API.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/calendar"
	"github.com/example/roombook/internal/session"
	"github.com/example/roombook/internal/settings"
	"github.com/example/roombook/internal/workflow"
)

// Tab identifies which view is active.
type Tab int

const (
	// TabCalendar shows the shared month calendar of approved bookings.
	TabCalendar Tab = iota
	// TabMine lists the signed-in user's own booking requests.
	TabMine
	// TabManage lists every booking for administrators.
	TabManage
)

// noticeFadeDelay is how long a status-bar notice stays visible.
const noticeFadeDelay = 4 * time.Second

// eventsLoadedMsg delivers a calendar window fetch result.
type eventsLoadedMsg struct {
	window calendar.Window
	events []calendar.Event
	err    error
}

// listLoadedMsg delivers a booking list fetch result.
type listLoadedMsg struct {
	tab      Tab
	bookings []api.Booking
	err      error
}

// mutationDoneMsg is sent when an asynchronous booking mutation completes.
type mutationDoneMsg struct {
	action workflow.Action
	err    error
}

// noticeFadeMsg clears the status-bar notice.
type noticeFadeMsg struct{}

// confirmState is the pending destructive action awaiting a y/esc answer.
type confirmState struct {
	booking api.Booking
}

// Deps are the collaborators the model drives. Sessions gates which tabs
// and actions are offered; Settings supplies display configuration.
type Deps struct {
	Workflow *workflow.Controller
	Calendar *calendar.Adapter
	Sessions workflow.SessionReader
	Settings *settings.Cache
}

// Model is the top-level bubbletea model.
type Model struct {
	ctx  context.Context
	deps Deps

	theme   Theme
	keys    KeyMap
	spinner spinner.Model
	now     func() time.Time

	width  int
	height int
	ready  bool

	activeTab Tab
	loading   bool

	// Status bar notice. noticeIsError selects the error style.
	notice        string
	noticeIsError bool

	// Calendar state. selectedDay always falls inside window.
	window      calendar.Window
	selectedDay time.Time
	events      []calendar.Event

	// List state for the active list tab.
	bookings []api.Booking
	cursor   int

	confirm *confirmState
}

// NewModel constructs the TUI model. The context bounds every API call the
// model issues.
func NewModel(ctx context.Context, deps Deps) Model {
	return NewModelWithNow(ctx, deps, time.Now)
}

// NewModelWithNow constructs the TUI model with an injected time source.
func NewModelWithNow(ctx context.Context, deps Deps, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(DefaultTheme.EventMarker)

	today := now()
	return Model{
		ctx:         ctx,
		deps:        deps,
		theme:       DefaultTheme,
		keys:        DefaultKeyMap,
		spinner:     sp,
		now:         now,
		activeTab:   TabCalendar,
		loading:     true,
		window:      calendar.MonthWindow(today),
		selectedDay: dayOf(today),
	}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadEvents())
}

func (m Model) loadEvents() tea.Cmd {
	window := m.window
	return func() tea.Msg {
		events, err := m.deps.Calendar.Events(m.ctx, window)
		return eventsLoadedMsg{window: window, events: events, err: err}
	}
}

func (m Model) loadList(tab Tab) tea.Cmd {
	return func() tea.Msg {
		var bookings []api.Booking
		var err error
		switch tab {
		case TabManage:
			bookings, err = m.deps.Workflow.ManageList(m.ctx)
		default:
			bookings, err = m.deps.Workflow.MyBookings(m.ctx)
		}
		return listLoadedMsg{tab: tab, bookings: bookings, err: err}
	}
}

func (m Model) runMutation(action workflow.Action, booking api.Booking, confirmed bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch action {
		case workflow.ActionApprove:
			err = m.deps.Workflow.Approve(m.ctx, booking)
		case workflow.ActionReject:
			err = m.deps.Workflow.Reject(m.ctx, booking)
		case workflow.ActionCancel:
			err = m.deps.Workflow.Cancel(m.ctx, booking)
		case workflow.ActionDelete:
			err = m.deps.Workflow.Delete(m.ctx, booking, confirmed)
		}
		return mutationDoneMsg{action: action, err: err}
	}
}

func fadeNotice() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventsLoadedMsg:
		// A stale window's result can arrive after the user paged on; only
		// the current window's answer is rendered.
		if msg.window != m.window {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.events = msg.events
		return m, nil

	case listLoadedMsg:
		if msg.tab != m.activeTab {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.bookings = msg.bookings
		if m.cursor >= len(m.bookings) {
			m.cursor = max(0, len(m.bookings)-1)
		}
		return m, nil

	case mutationDoneMsg:
		m.loading = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.notice = string(msg.action) + " done"
		m.noticeIsError = false
		// The controller already refreshed its cached lists; re-pull the
		// visible one so the screen matches.
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadList(m.activeTab), fadeNotice())

	case noticeFadeMsg:
		m.notice = ""
		m.noticeIsError = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) showError(err error) (Model, tea.Cmd) {
	m.loading = false
	m.notice = err.Error()
	m.noticeIsError = true
	return m, fadeNotice()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A visible confirmation overlay captures all input.
	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			booking := m.confirm.booking
			m.confirm = nil
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.runMutation(workflow.ActionDelete, booking, true))
		case key.Matches(msg, m.keys.Dismiss), key.Matches(msg, m.keys.Quit):
			m.confirm = nil
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.TabCalendar):
		return m.switchTab(TabCalendar)
	case key.Matches(msg, m.keys.TabMine):
		return m.switchTab(TabMine)
	case key.Matches(msg, m.keys.TabManage):
		if !m.isAdmin() {
			m.notice = "booking management requires an administrator"
			m.noticeIsError = true
			return m, fadeNotice()
		}
		return m.switchTab(TabManage)

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		if m.activeTab == TabCalendar {
			return m, tea.Batch(m.spinner.Tick, m.loadEvents())
		}
		return m, tea.Batch(m.spinner.Tick, m.loadList(m.activeTab))
	}

	if m.activeTab == TabCalendar {
		return m.handleCalendarKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	if tab == m.activeTab {
		return m, nil
	}
	m.activeTab = tab
	m.cursor = 0
	m.loading = true
	if tab == TabCalendar {
		return m, tea.Batch(m.spinner.Tick, m.loadEvents())
	}
	m.bookings = nil
	return m, tea.Batch(m.spinner.Tick, m.loadList(tab))
}

func (m Model) handleCalendarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		return m.moveSelectedDay(-1)
	case key.Matches(msg, m.keys.Right):
		return m.moveSelectedDay(1)
	case key.Matches(msg, m.keys.Up):
		return m.moveSelectedDay(-7)
	case key.Matches(msg, m.keys.Down):
		return m.moveSelectedDay(7)

	case key.Matches(msg, m.keys.PrevMonth):
		return m.setWindow(m.window.Start.AddDate(0, -1, 0))
	case key.Matches(msg, m.keys.NextMonth):
		return m.setWindow(m.window.Start.AddDate(0, 1, 0))
	case key.Matches(msg, m.keys.Today):
		today := dayOf(m.now())
		m.selectedDay = today
		return m.setWindow(today)
	}
	return m, nil
}

// moveSelectedDay shifts the selection, paging the window when the
// selection crosses a month boundary.
func (m Model) moveSelectedDay(days int) (tea.Model, tea.Cmd) {
	m.selectedDay = m.selectedDay.AddDate(0, 0, days)
	if m.selectedDay.Before(m.window.Start) || !m.selectedDay.Before(m.window.End) {
		return m.setWindow(m.selectedDay)
	}
	return m, nil
}

// setWindow points the calendar at the month containing ref and reloads.
// Every window change is a fresh fetch: the approved set can change
// between any two renders.
func (m Model) setWindow(ref time.Time) (tea.Model, tea.Cmd) {
	m.window = calendar.MonthWindow(ref)
	if m.selectedDay.Before(m.window.Start) || !m.selectedDay.Before(m.window.End) {
		m.selectedDay = m.window.Start
	}
	m.events = nil
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.loadEvents())
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.bookings)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Approve):
		return m.requestAction(workflow.ActionApprove)
	case key.Matches(msg, m.keys.Reject):
		return m.requestAction(workflow.ActionReject)
	case key.Matches(msg, m.keys.Cancel):
		return m.requestAction(workflow.ActionCancel)
	case key.Matches(msg, m.keys.Delete):
		return m.requestAction(workflow.ActionDelete)
	}
	return m, nil
}

// requestAction validates the action against the selected booking and
// either starts it, opens the confirmation overlay, or explains the
// refusal in the status bar.
func (m Model) requestAction(action workflow.Action) (tea.Model, tea.Cmd) {
	booking, ok := m.selectedBooking()
	if !ok {
		return m, nil
	}
	identity, ok := m.deps.Sessions.Identity()
	if !ok || !workflow.Allowed(identity, booking, action) {
		m.notice = string(action) + " is not available for this booking"
		m.noticeIsError = true
		return m, fadeNotice()
	}
	if action == workflow.ActionDelete && booking.Status == api.StatusApproved {
		m.confirm = &confirmState{booking: booking}
		return m, nil
	}
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.runMutation(action, booking, false))
}

func (m Model) selectedBooking() (api.Booking, bool) {
	if m.cursor < 0 || m.cursor >= len(m.bookings) {
		return api.Booking{}, false
	}
	return m.bookings[m.cursor], true
}

func (m Model) isAdmin() bool {
	identity, ok := m.deps.Sessions.Identity()
	return ok && identity.IsAdmin()
}

func (m Model) identity() (session.Identity, bool) {
	return m.deps.Sessions.Identity()
}
