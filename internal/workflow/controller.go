package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/logging"
	"github.com/example/roombook/internal/session"
)

// ErrConfirmationRequired is returned when a destructive operation needs an
// explicit confirmation the caller did not supply.
var ErrConfirmationRequired = errors.New("workflow: deleting an approved booking requires explicit confirmation")

// BookingAPI is the slice of the API client the controller drives.
type BookingAPI interface {
	ListBookings(ctx context.Context, query api.BookingQuery) ([]api.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status api.BookingStatus) (api.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	UpdateBooking(ctx context.Context, id int64, update api.BookingUpdate) (api.Booking, error)
	CreateBooking(ctx context.Context, draft api.BookingDraft) (api.Booking, error)
}

// SessionReader exposes the session state the controller gates on.
type SessionReader interface {
	Status() session.Status
	Identity() (session.Identity, bool)
}

// Controller turns user intents into permitted API mutations and keeps the
// cached booking lists consistent afterwards. Mutations are serialized by a
// mutex, so rapid repeated requests against the same booking become ordered
// requests rather than an in-process race; concurrent mutation by other
// clients is resolved by the server.
type Controller struct {
	mu       sync.Mutex
	api      BookingAPI
	sessions SessionReader
	cache    *listCache
	logger   *slog.Logger
	now      func() time.Time
}

const manageListKey = "manage"

// NewController constructs a workflow controller.
func NewController(bookings BookingAPI, sessions SessionReader, now func() time.Time) *Controller {
	return NewControllerWithLogger(bookings, sessions, now, nil)
}

// NewControllerWithLogger constructs a workflow controller with a specified
// logger.
func NewControllerWithLogger(bookings BookingAPI, sessions SessionReader, now func() time.Time, logger *slog.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:      bookings,
		sessions: sessions,
		cache:    newListCache(30*time.Second, now),
		logger:   logger,
		now:      now,
	}
}

func (c *Controller) loggerFor(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}
	pairs := append([]any{"component", "workflow", "operation", operation}, attrs...)
	return logger.With(pairs...)
}

func (c *Controller) requireIdentity() (session.Identity, error) {
	if c.sessions.Status() != session.StatusAuthenticated {
		return session.Identity{}, fmt.Errorf("%w: sign in first", api.ErrUnauthorized)
	}
	identity, ok := c.sessions.Identity()
	if !ok {
		return session.Identity{}, fmt.Errorf("%w: sign in first", api.ErrUnauthorized)
	}
	return identity, nil
}

// Approve requests pending → approved (or an explicit re-approval of a
// rejected booking). Admin only.
func (c *Controller) Approve(ctx context.Context, b api.Booking) error {
	return c.transition(ctx, b, ActionApprove)
}

// Reject requests pending → rejected (or an explicit re-decision of an
// approved booking). Admin only.
func (c *Controller) Reject(ctx context.Context, b api.Booking) error {
	return c.transition(ctx, b, ActionReject)
}

// Cancel requests a non-terminal booking → cancelled. Owner or admin.
func (c *Controller) Cancel(ctx context.Context, b api.Booking) error {
	return c.transition(ctx, b, ActionCancel)
}

func (c *Controller) transition(ctx context.Context, b api.Booking, action Action) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.loggerFor(ctx, "transition",
		"booking_id", b.ID,
		"from", string(b.Status),
		"action", string(action),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "transition failed", "error", err, "error_kind", api.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "transition acknowledged")
	}()

	identity, err := c.requireIdentity()
	if err != nil {
		return err
	}
	if !Allowed(identity, b, action) {
		return fmt.Errorf("%w: %s of booking %d is not permitted for role %s",
			api.ErrTransitionRejected, action, b.ID, identity.Role)
	}
	target, ok := action.target()
	if !ok {
		return fmt.Errorf("%w: %s is not a status transition", api.ErrTransitionRejected, action)
	}

	if _, err = c.api.UpdateBookingStatus(ctx, b.ID, target); err != nil {
		// List caches are left untouched; the visible state still matches
		// the last server-acknowledged state.
		return err
	}

	return c.refreshAfterMutation(ctx, identity)
}

// Delete permanently removes a booking. Admin only. Deleting an approved
// booking is destructive and requires confirmed to be set.
func (c *Controller) Delete(ctx context.Context, b api.Booking, confirmed bool) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.loggerFor(ctx, "Delete", "booking_id", b.ID, "from", string(b.Status))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "delete failed", "error", err, "error_kind", api.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	identity, err := c.requireIdentity()
	if err != nil {
		return err
	}
	if !Allowed(identity, b, ActionDelete) {
		return fmt.Errorf("%w: delete of booking %d is not permitted for role %s",
			api.ErrTransitionRejected, b.ID, identity.Role)
	}
	if b.Status == api.StatusApproved && !confirmed {
		return ErrConfirmationRequired
	}

	if err = c.api.DeleteBooking(ctx, b.ID); err != nil {
		return err
	}
	return c.refreshAfterMutation(ctx, identity)
}

// EditInput carries the editable booking fields.
type EditInput struct {
	Subject   string
	RoomID    int64
	StartTime time.Time
	EndTime   time.Time
	Note      string
}

// Edit rewrites a booking's details. Admin only; form invariants are checked
// locally and never reach the network layer when violated.
func (c *Controller) Edit(ctx context.Context, b api.Booking, input EditInput) (updated api.Booking, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.loggerFor(ctx, "Edit", "booking_id", b.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "edit failed", "error", err, "error_kind", api.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	identity, err := c.requireIdentity()
	if err != nil {
		return api.Booking{}, err
	}
	if !Allowed(identity, b, ActionEdit) {
		return api.Booking{}, fmt.Errorf("%w: edit of booking %d is not permitted for role %s",
			api.ErrTransitionRejected, b.ID, identity.Role)
	}
	if vErr := validateTimes(input.Subject, input.RoomID, input.StartTime, input.EndTime); vErr.HasErrors() {
		return api.Booking{}, vErr
	}

	updated, err = c.api.UpdateBooking(ctx, b.ID, api.BookingUpdate{
		Subject:   strings.TrimSpace(input.Subject),
		RoomID:    input.RoomID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Note:      input.Note,
	})
	if err != nil {
		return api.Booking{}, err
	}
	if err = c.refreshAfterMutation(ctx, identity); err != nil {
		return api.Booking{}, err
	}
	return updated, nil
}

// CreateInput carries the fields for a new booking request. Resources are
// display names; they are aggregated into the booking's free-text resource
// field.
type CreateInput struct {
	Subject     string
	RoomID      int64
	StartTime   time.Time
	EndTime     time.Time
	Department  string
	Phone       string
	Attendees   int
	Note        string
	Resources   []string
	LayoutImage *api.LayoutImage
}

// Create submits a new booking request. Any authenticated user may create;
// the record always starts pending regardless of caller role.
func (c *Controller) Create(ctx context.Context, input CreateInput) (created api.Booking, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.loggerFor(ctx, "Create", "subject", input.Subject, "room_id", input.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "create failed", "error", err, "error_kind", api.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking requested", "booking_id", created.ID)
	}()

	identity, err := c.requireIdentity()
	if err != nil {
		return api.Booking{}, err
	}
	if vErr := validateTimes(input.Subject, input.RoomID, input.StartTime, input.EndTime); vErr.HasErrors() {
		return api.Booking{}, vErr
	}

	created, err = c.api.CreateBooking(ctx, api.BookingDraft{
		Subject:      strings.TrimSpace(input.Subject),
		RoomID:       input.RoomID,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Department:   input.Department,
		Phone:        input.Phone,
		Attendees:    input.Attendees,
		Note:         input.Note,
		ResourceText: strings.Join(input.Resources, ", "),
		LayoutImage:  input.LayoutImage,
	})
	if err != nil {
		return api.Booking{}, err
	}
	if err = c.refreshAfterMutation(ctx, identity); err != nil {
		return api.Booking{}, err
	}
	return created, nil
}

func validateTimes(subject string, roomID int64, start, end time.Time) *api.ValidationError {
	vErr := &api.ValidationError{}
	if strings.TrimSpace(subject) == "" {
		vErr.Add("subject", "subject is required")
	}
	if roomID <= 0 {
		vErr.Add("room_id", "a room must be selected")
	}
	if start.IsZero() {
		vErr.Add("start_time", "start time is required")
	}
	if end.IsZero() {
		vErr.Add("end_time", "end time is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.Add("end_time", "end time must be after start time")
	}
	return vErr
}

// refreshAfterMutation invalidates every cached list and re-fetches the
// caller's primary list before the mutation is reported as a success, so the
// visible list and the success notification never disagree.
func (c *Controller) refreshAfterMutation(ctx context.Context, identity session.Identity) error {
	c.cache.Invalidate()

	var err error
	if identity.IsAdmin() {
		_, err = c.fetchManageList(ctx)
	} else {
		_, err = c.fetchMyBookings(ctx, identity)
	}
	if err != nil {
		return fmt.Errorf("mutation acknowledged but list refresh failed: %w", err)
	}
	return nil
}

// ManageList returns every booking for the management view, newest first.
// Admin only.
func (c *Controller) ManageList(ctx context.Context) ([]api.Booking, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() {
		return nil, fmt.Errorf("%w: booking management requires an administrator", api.ErrUnauthorized)
	}
	if cached, ok := c.cache.Get(manageListKey); ok {
		return cached, nil
	}
	return c.fetchManageList(ctx)
}

// MyBookings returns the authenticated user's own bookings, newest first.
func (c *Controller) MyBookings(ctx context.Context) ([]api.Booking, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}
	if cached, ok := c.cache.Get(myListKey(identity)); ok {
		return cached, nil
	}
	return c.fetchMyBookings(ctx, identity)
}

// FindBooking resolves a booking id through the caller's visible list.
func (c *Controller) FindBooking(ctx context.Context, id int64) (api.Booking, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return api.Booking{}, err
	}

	var bookings []api.Booking
	if identity.IsAdmin() {
		bookings, err = c.ManageList(ctx)
	} else {
		bookings, err = c.MyBookings(ctx)
	}
	if err != nil {
		return api.Booking{}, err
	}
	for _, b := range bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return api.Booking{}, fmt.Errorf("%w: booking %d", api.ErrNotFound, id)
}

func (c *Controller) fetchManageList(ctx context.Context) ([]api.Booking, error) {
	generation := c.cache.Generation()
	bookings, err := c.api.ListBookings(ctx, api.BookingQuery{})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(bookings)
	c.cache.Store(manageListKey, generation, bookings)
	return bookings, nil
}

func (c *Controller) fetchMyBookings(ctx context.Context, identity session.Identity) ([]api.Booking, error) {
	generation := c.cache.Generation()
	bookings, err := c.api.ListBookings(ctx, api.BookingQuery{UserID: identity.UserID})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(bookings)
	c.cache.Store(myListKey(identity), generation, bookings)
	return bookings, nil
}

func myListKey(identity session.Identity) string {
	return fmt.Sprintf("mine:%d", identity.UserID)
}

func sortNewestFirst(bookings []api.Booking) {
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID > bookings[j].ID })
}
