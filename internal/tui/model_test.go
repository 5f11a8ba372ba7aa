package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/calendar"
	"github.com/example/roombook/internal/session"
	"github.com/example/roombook/internal/settings"
	"github.com/example/roombook/internal/testfixtures"
	"github.com/example/roombook/internal/workflow"
)

type sessionStub struct {
	status   session.Status
	identity session.Identity
}

func (s *sessionStub) Status() session.Status { return s.status }

func (s *sessionStub) Identity() (session.Identity, bool) {
	return s.identity, s.status == session.StatusAuthenticated
}

// newTestModel wires a model against the fixture server with the given
// identity and a clock pinned to the reference time.
func newTestModel(t *testing.T, identity session.Identity) (Model, *testfixtures.BookingServer) {
	t.Helper()

	server := testfixtures.NewBookingServer(t)
	client, err := api.NewClient(server.URL(), nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	sessions := &sessionStub{status: session.StatusAuthenticated, identity: identity}
	clock := testfixtures.NewClock(time.Time{})

	model := NewModelWithNow(context.Background(), Deps{
		Workflow: workflow.NewController(client, sessions, clock.NowFunc()),
		Calendar: calendar.NewAdapter(client),
		Sessions: sessions,
		Settings: settings.NewCache(client),
	}, clock.NowFunc())

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), server
}

func adminIdentity() session.Identity {
	return session.Identity{UserID: 1, Username: "admin", Role: session.RoleAdmin}
}

func userIdentity() session.Identity {
	return session.Identity{UserID: 7, Username: "somsri", Role: session.RoleUser}
}

// deliver runs one of the model's commands and feeds the resulting message
// back through Update.
func deliver(t *testing.T, model Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, next := model.Update(cmd())
	return updated.(Model), next
}

func TestNewModel(t *testing.T) {
	model, _ := newTestModel(t, userIdentity())

	if model.activeTab != TabCalendar {
		t.Fatalf("expected the calendar tab, got %d", model.activeTab)
	}
	want := calendar.MonthWindow(testfixtures.ReferenceTime())
	if model.window != want {
		t.Fatalf("window = %+v, want %+v", model.window, want)
	}
	if !model.selectedDay.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("selected day = %v", model.selectedDay)
	}
}

func TestModelQuit(t *testing.T) {
	model, _ := newTestModel(t, userIdentity())

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, isQuit := cmd().(tea.QuitMsg); !isQuit {
		t.Fatalf("expected QuitMsg, got %T", cmd())
	}
}

func TestCalendarLoadsApprovedEvents(t *testing.T) {
	model, server := newTestModel(t, userIdentity())
	ref := testfixtures.ReferenceTime()
	server.AddBooking(api.Booking{
		Subject: "standup", Status: api.StatusApproved,
		StartTime: ref.Add(time.Hour), EndTime: ref.Add(2 * time.Hour),
	})

	model, _ = deliver(t, model, model.loadEvents())

	if model.loading {
		t.Fatal("load should clear the loading flag")
	}
	if len(model.events) != 1 || model.events[0].Title != "standup" {
		t.Fatalf("unexpected events %+v", model.events)
	}
	if view := model.View(); !strings.Contains(view, "standup") {
		t.Fatal("the agenda should show the loaded event")
	}
}

func TestCalendarMonthPagingRefetches(t *testing.T) {
	model, server := newTestModel(t, userIdentity())
	model, _ = deliver(t, model, model.loadEvents())

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	model = updated.(Model)

	want := calendar.MonthWindow(testfixtures.ReferenceTime().AddDate(0, 1, 0))
	if model.window != want {
		t.Fatalf("window = %+v, want %+v", model.window, want)
	}
	if !model.loading {
		t.Fatal("paging should enter the loading state")
	}
	if cmd == nil {
		t.Fatal("paging should schedule a fetch")
	}

	drainBatch(t, model, cmd)
	if got := server.RequestCount("GET /api/bookings"); got != 2 {
		t.Fatalf("expected a fetch per window, got %d", got)
	}
}

func TestCalendarStaleWindowResultDropped(t *testing.T) {
	model, server := newTestModel(t, userIdentity())
	ref := testfixtures.ReferenceTime()
	server.AddBooking(api.Booking{
		Subject: "old month", Status: api.StatusApproved,
		StartTime: ref.Add(time.Hour), EndTime: ref.Add(2 * time.Hour),
	})

	// Fetch for the current window, but page to the next month before the
	// result arrives.
	staleFetch := model.loadEvents()
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	model = updated.(Model)

	updated, _ = model.Update(staleFetch())
	model = updated.(Model)

	if len(model.events) != 0 {
		t.Fatalf("a stale window's events were rendered: %+v", model.events)
	}
}

func TestCalendarDaySelection(t *testing.T) {
	model, _ := newTestModel(t, userIdentity())

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	model = updated.(Model)
	if model.selectedDay.Day() != 10 {
		t.Fatalf("selected day = %v", model.selectedDay)
	}

	// Crossing the month boundary pages the window.
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	model = updated.(Model)
	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	model = updated.(Model)
	for model.selectedDay.Day() != 1 {
		updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
		model = updated.(Model)
	}
	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	model = updated.(Model)

	if model.window.Start.Month() != time.February {
		t.Fatalf("expected the window to page back, got %v", model.window.Start)
	}
	if cmd == nil {
		t.Fatal("crossing the boundary should schedule a fetch")
	}
}

func TestTabSwitchingLoadsList(t *testing.T) {
	model, server := newTestModel(t, userIdentity())
	server.AddBooking(api.Booking{ID: 3, Subject: "my request", Status: api.StatusPending, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	if model.activeTab != TabMine {
		t.Fatalf("expected TabMine, got %d", model.activeTab)
	}

	model, _ = deliver(t, model, model.loadList(TabMine))
	if len(model.bookings) != 1 || model.bookings[0].Subject != "my request" {
		t.Fatalf("unexpected bookings %+v", model.bookings)
	}
	if view := model.View(); !strings.Contains(view, "my request") {
		t.Fatal("the list view should show the booking")
	}
}

func TestManageTabRequiresAdmin(t *testing.T) {
	model, _ := newTestModel(t, userIdentity())

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)

	if model.activeTab == TabManage {
		t.Fatal("a non-admin must not reach the manage tab")
	}
	if !model.noticeIsError || model.notice == "" {
		t.Fatal("expected an explanatory notice")
	}
}

func TestApproveFromManageTab(t *testing.T) {
	model, server := newTestModel(t, adminIdentity())
	b := server.AddBooking(api.Booking{Subject: "seminar", Status: api.StatusPending, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)
	model, _ = deliver(t, model, model.loadList(TabManage))

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	model = updated.(Model)
	if cmd == nil {
		t.Fatal("approve should schedule a mutation")
	}

	model, _ = drainBatch(t, model, cmd)

	stored, _ := server.Booking(b.ID)
	if stored.Status != api.StatusApproved {
		t.Fatalf("expected the booking to be approved, got %s", stored.Status)
	}
}

func TestApproveNotOfferedToNonAdmin(t *testing.T) {
	model, server := newTestModel(t, userIdentity())
	server.AddBooking(api.Booking{Subject: "mine", Status: api.StatusPending, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	model, _ = deliver(t, model, model.loadList(TabMine))

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	model = updated.(Model)

	if !model.noticeIsError {
		t.Fatal("expected a refusal notice")
	}
	if server.RequestCount("PATCH") != 0 {
		t.Fatal("a refused action must not reach the server")
	}
}

func TestDeleteApprovedNeedsConfirmation(t *testing.T) {
	model, server := newTestModel(t, adminIdentity())
	b := server.AddBooking(api.Booking{Subject: "offsite", Status: api.StatusApproved, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)
	model, _ = deliver(t, model, model.loadList(TabManage))

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	model = updated.(Model)
	if model.confirm == nil {
		t.Fatal("deleting an approved booking should open the confirmation overlay")
	}
	if server.RequestCount("DELETE") != 0 {
		t.Fatal("no request may be issued before confirmation")
	}

	// Escape dismisses without deleting.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.confirm != nil {
		t.Fatal("escape should dismiss the overlay")
	}

	// Reopen and confirm.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	model = updated.(Model)
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	model = updated.(Model)

	model, _ = drainBatch(t, model, cmd)
	if _, ok := server.Booking(b.ID); ok {
		t.Fatal("expected the booking to be deleted after confirmation")
	}
}

func TestMutationFailureShowsNotice(t *testing.T) {
	model, server := newTestModel(t, adminIdentity())
	server.AddBooking(api.Booking{Subject: "seminar", Status: api.StatusPending, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)
	model, _ = deliver(t, model, model.loadList(TabManage))

	server.MutationStatus = 409
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	model = updated.(Model)

	model, _ = drainBatch(t, model, cmd)
	if !model.noticeIsError || model.notice == "" {
		t.Fatal("a failed mutation should surface in the status bar")
	}
}

func TestDetailPaneHintsOnlyBoundKeys(t *testing.T) {
	model, server := newTestModel(t, adminIdentity())
	server.AddBooking(api.Booking{Subject: "seminar", Status: api.StatusPending, UserID: 7})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)
	model, _ = deliver(t, model, model.loadList(TabManage))

	view := model.View()
	if !strings.Contains(view, "a approve") {
		t.Fatal("detail pane should hint the approve key for a pending booking")
	}
	if strings.Contains(view, "e edit") {
		t.Fatal("detail pane hints a key the model does not handle")
	}
}

// drainBatch executes cmd, recursively unpacking tea batches, and feeds every
// produced message back through the model in order.
func drainBatch(t *testing.T, model Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return model, nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			model, _ = drainBatch(t, model, sub)
		}
		return model, nil
	}
	updated, next := model.Update(msg)
	return updated.(Model), next
}
