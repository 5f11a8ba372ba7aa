package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Login exchanges credentials for a bearer token. A 4xx refusal is an
// ErrInvalidCredential carrying the server's message, distinct from transport
// failures.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	err = c.do(ctx, http.MethodPost, c.endpoint("/api/login", nil), body, "application/json", &result)
	if err != nil {
		if status, ok := err.(*errorStatus); ok {
			if status.code >= 400 && status.code < 500 {
				return "", fmt.Errorf("%w: %s", ErrInvalidCredential, status.message)
			}
			return "", &APIError{StatusCode: status.code, Message: status.message}
		}
		return "", err
	}
	if result.Token == "" {
		return "", fmt.Errorf("%w: server returned an empty token", ErrInvalidCredential)
	}
	return result.Token, nil
}

// ListBookings fetches bookings matching the query. Window bounds are sent as
// RFC 3339 so the server interprets the half-open range [start, end).
func (c *Client) ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error) {
	values := url.Values{}
	if query.Start != nil {
		values.Set("start", query.Start.Format(time.RFC3339))
	}
	if query.End != nil {
		values.Set("end", query.End.Format(time.RFC3339))
	}
	if query.Status != "" {
		values.Set("status", string(query.Status))
	}
	if query.UserID != 0 {
		values.Set("user_id", strconv.FormatInt(query.UserID, 10))
	}

	var bookings []Booking
	if err := c.getJSON(ctx, "/api/bookings", values, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBookingStatus requests a status transition and returns the record the
// server acknowledged. The caller must not assume the transition happened
// until this returns nil.
func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, status BookingStatus) (Booking, error) {
	body, err := jsonBody(map[string]BookingStatus{"status": status})
	if err != nil {
		return Booking{}, err
	}

	var updated Booking
	path := fmt.Sprintf("/api/bookings/%d/status", id)
	if err := c.do(ctx, http.MethodPatch, c.endpoint(path, nil), body, "application/json", &updated); err != nil {
		return Booking{}, mapMutationError(err)
	}
	return updated, nil
}

// DeleteBooking permanently removes a booking. Deleting an id that does not
// exist reports ErrNotFound rather than silent success.
func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/bookings/%d", id)
	if err := c.do(ctx, http.MethodDelete, c.endpoint(path, nil), nil, "", nil); err != nil {
		return mapMutationError(err)
	}
	return nil
}

// UpdateBooking rewrites the editable fields of a booking.
func (c *Client) UpdateBooking(ctx context.Context, id int64, update BookingUpdate) (Booking, error) {
	body, err := jsonBody(update)
	if err != nil {
		return Booking{}, err
	}

	var updated Booking
	path := fmt.Sprintf("/api/bookings/%d", id)
	if err := c.do(ctx, http.MethodPut, c.endpoint(path, nil), body, "application/json", &updated); err != nil {
		return Booking{}, mapMutationError(err)
	}
	return updated, nil
}

// CreateBooking submits a new booking as multipart form data, with the layout
// image attached when present. Status is always submitted as pending; the
// server decides everything after that.
func (c *Client) CreateBooking(ctx context.Context, draft BookingDraft) (Booking, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"subject":       draft.Subject,
		"room_id":       strconv.FormatInt(draft.RoomID, 10),
		"start_time":    draft.StartTime.Format(time.RFC3339),
		"end_time":      draft.EndTime.Format(time.RFC3339),
		"department":    draft.Department,
		"phone":         draft.Phone,
		"attendees":     strconv.Itoa(draft.Attendees),
		"note":          draft.Note,
		"resource_text": draft.ResourceText,
		"status":        string(StatusPending),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return Booking{}, fmt.Errorf("encode form field %s: %w", name, err)
		}
	}
	if draft.LayoutImage != nil {
		part, err := writer.CreateFormFile("layout_image", draft.LayoutImage.Filename)
		if err != nil {
			return Booking{}, fmt.Errorf("encode layout image: %w", err)
		}
		if _, err := part.Write(draft.LayoutImage.Data); err != nil {
			return Booking{}, fmt.Errorf("encode layout image: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return Booking{}, fmt.Errorf("finalize form body: %w", err)
	}

	var created Booking
	if err := c.do(ctx, http.MethodPost, c.endpoint("/api/bookings", nil), &buf, writer.FormDataContentType(), &created); err != nil {
		return Booking{}, mapMutationError(err)
	}
	return created, nil
}
