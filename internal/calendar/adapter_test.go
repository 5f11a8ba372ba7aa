package calendar_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/calendar"
	"github.com/example/roombook/internal/testfixtures"
)

func newAdapter(t *testing.T) (*calendar.Adapter, *testfixtures.BookingServer) {
	t.Helper()
	server := testfixtures.NewBookingServer(t)
	client, err := api.NewClient(server.URL(), nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return calendar.NewAdapter(client), server
}

func TestAdapter_Events(t *testing.T) {
	t.Parallel()

	ref := testfixtures.ReferenceTime()
	window := calendar.Window{Start: ref, End: ref.AddDate(0, 1, 0)}

	t.Run("returns approved bookings in the window ordered by start", func(t *testing.T) {
		t.Parallel()

		adapter, server := newAdapter(t)
		server.AddBooking(api.Booking{
			ID: 2, Subject: "late", Status: api.StatusApproved,
			StartTime: ref.Add(48 * time.Hour), EndTime: ref.Add(49 * time.Hour),
		})
		server.AddBooking(api.Booking{
			ID: 5, Subject: "early", Status: api.StatusApproved,
			StartTime: ref.Add(2 * time.Hour), EndTime: ref.Add(3 * time.Hour),
			Room: &api.Room{RoomName: "Orchid", Color: "#16a34a"},
		})
		server.AddBooking(api.Booking{
			ID: 9, Subject: "next month", Status: api.StatusApproved,
			StartTime: ref.AddDate(0, 1, 1), EndTime: ref.AddDate(0, 1, 1).Add(time.Hour),
		})

		events, err := adapter.Events(context.Background(), window)
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Title != "early" || events[1].Title != "late" {
			t.Fatalf("events out of order: %q then %q", events[0].Title, events[1].Title)
		}
		if events[0].Color != "#16a34a" {
			t.Fatalf("expected the room color, got %q", events[0].Color)
		}
		if events[1].Color != "#94a3b8" {
			t.Fatalf("expected the fallback color for a room-less booking, got %q", events[1].Color)
		}
	})

	t.Run("only approved bookings are requested and shown", func(t *testing.T) {
		t.Parallel()

		adapter, server := newAdapter(t)
		server.AddBooking(api.Booking{
			Subject: "pending request", Status: api.StatusPending,
			StartTime: ref.Add(time.Hour), EndTime: ref.Add(2 * time.Hour),
		})
		server.AddBooking(api.Booking{
			Subject: "turned down", Status: api.StatusRejected,
			StartTime: ref.Add(time.Hour), EndTime: ref.Add(2 * time.Hour),
		})

		events, err := adapter.Events(context.Background(), window)
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("non-approved bookings leaked into the calendar: %+v", events)
		}

		requests := server.Requests()
		if len(requests) != 1 || !strings.Contains(requests[0], "status=approved") {
			t.Fatalf("expected a status=approved query, got %v", requests)
		}
		if !strings.Contains(requests[0], "start=") || !strings.Contains(requests[0], "end=") {
			t.Fatalf("expected a windowed query, got %v", requests)
		}
	})

	t.Run("every window change re-queries the server", func(t *testing.T) {
		t.Parallel()

		adapter, server := newAdapter(t)
		next := calendar.Window{Start: window.End, End: window.End.AddDate(0, 1, 0)}

		if _, err := adapter.Events(context.Background(), window); err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if _, err := adapter.Events(context.Background(), next); err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if got := server.RequestCount("GET /api/bookings"); got != 2 {
			t.Fatalf("expected 2 fetches, got %d", got)
		}
	})

	t.Run("transport failures surface as network errors", func(t *testing.T) {
		t.Parallel()

		client, err := api.NewClient("http://127.0.0.1:1", nil, time.Second)
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		adapter := calendar.NewAdapter(client)

		_, err = adapter.Events(context.Background(), window)
		var netErr *api.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected a NetworkError, got %v", err)
		}
	})
}

func TestMonthWindow(t *testing.T) {
	t.Parallel()

	w := calendar.MonthWindow(time.Date(2026, time.March, 9, 15, 30, 0, 0, time.UTC))
	wantStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Fatalf("unexpected window %v..%v", w.Start, w.End)
	}
}

func TestWeekWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{
			name: "midweek snaps back to monday",
			ref:  time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC), // a Wednesday
			want: time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the preceding monday",
			ref:  time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday is its own start",
			ref:  time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := calendar.WeekWindow(tc.ref)
			if !w.Start.Equal(tc.want) {
				t.Fatalf("week start = %v, want %v", w.Start, tc.want)
			}
			if !w.End.Equal(tc.want.AddDate(0, 0, 7)) {
				t.Fatalf("week end = %v", w.End)
			}
		})
	}
}
