// Package calendar bridges the visible calendar window to the booking API.
// The adapter queries only approved bookings for a half-open time range and
// materializes them into display events; it never caches across ranges,
// because the approved set can change between any two renders.
package calendar

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/logging"
)

// defaultColor is used when a booking carries no room color.
const defaultColor = "#94a3b8"

// Window is the half-open visible range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the window covering the calendar month containing ref.
func MonthWindow(ref time.Time) Window {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// WeekWindow returns the Monday-start week containing ref.
func WeekWindow(ref time.Time) Window {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// Event is a booking materialized for display. Booking carries the full
// record so a detail view renders without a second round trip.
type Event struct {
	ID      int64
	Title   string
	Start   time.Time
	End     time.Time
	Color   string
	Booking api.Booking
}

// BookingLister is the read side of the booking API the adapter needs.
type BookingLister interface {
	ListBookings(ctx context.Context, query api.BookingQuery) ([]api.Booking, error)
}

// Adapter converts calendar windows into API queries and bookings into
// events. It is stateless beyond its dependencies.
type Adapter struct {
	bookings BookingLister
	logger   *slog.Logger
}

// NewAdapter constructs a calendar adapter.
func NewAdapter(bookings BookingLister) *Adapter {
	return NewAdapterWithLogger(bookings, nil)
}

// NewAdapterWithLogger constructs a calendar adapter with a specified logger.
func NewAdapterWithLogger(bookings BookingLister, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{bookings: bookings, logger: logger}
}

// Events fetches the approved bookings visible in w, ordered by start time.
// A record the server returns with any status other than approved is dropped:
// pending and rejected bookings must never leak into the shared calendar.
func (a *Adapter) Events(ctx context.Context, w Window) ([]Event, error) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = a.logger
	}

	bookings, err := a.bookings.ListBookings(ctx, api.BookingQuery{
		Start:  &w.Start,
		End:    &w.End,
		Status: api.StatusApproved,
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(bookings))
	for _, b := range bookings {
		if b.Status != api.StatusApproved {
			logger.WarnContext(ctx, "dropping non-approved booking from calendar window",
				"booking_id", b.ID,
				"status", string(b.Status),
			)
			continue
		}
		events = append(events, Event{
			ID:      b.ID,
			Title:   b.Subject,
			Start:   b.StartTime,
			End:     b.EndTime,
			Color:   eventColor(b),
			Booking: b,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func eventColor(b api.Booking) string {
	if b.Room != nil && b.Room.Color != "" {
		return b.Room.Color
	}
	return defaultColor
}
