package api

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is a room reservation record as returned by the server. The client
// never mutates a booking in place; it requests a transition and re-reads.
type Booking struct {
	ID           int64         `json:"id"`
	Subject      string        `json:"subject"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       BookingStatus `json:"status"`
	Department   string        `json:"department,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Attendees    int           `json:"attendees,omitempty"`
	Note         string        `json:"note,omitempty"`
	ResourceText string        `json:"resource_text,omitempty"`
	LayoutImage  string        `json:"layout_image,omitempty"`
	RoomID       int64         `json:"room_id"`
	UserID       int64         `json:"user_id,omitempty"`
	Room         *Room         `json:"room,omitempty"`
	User         *BookingOwner `json:"user,omitempty"`
}

// BookingOwner is the embedded display view of the booking's owner.
type BookingOwner struct {
	FullName string `json:"full_name"`
}

// Room is a bookable meeting room.
type Room struct {
	ID          int64  `json:"id"`
	RoomName    string `json:"room_name"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
	ImagePath   string `json:"image_path,omitempty"`
	Color       string `json:"color"`
	Status      string `json:"status"`
}

// Resource is bookable equipment offered alongside rooms.
type Resource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// User is a staff account.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Tel        string `json:"tel"`
}

// BookingQuery selects a subset of bookings. Zero values mean "no filter";
// the calendar window sets Start/End/Status, the personal list sets UserID.
type BookingQuery struct {
	Start  *time.Time
	End    *time.Time
	Status BookingStatus
	UserID int64
}

// BookingUpdate carries the editable fields for PUT /api/bookings/{id}.
type BookingUpdate struct {
	Subject   string    `json:"subject"`
	RoomID    int64     `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Note      string    `json:"note"`
}

// LayoutImage is an optional room-layout attachment for a new booking.
type LayoutImage struct {
	Filename string
	Data     []byte
}

// BookingDraft carries the multipart fields for POST /api/bookings. Status is
// not a field: the client always submits pending.
type BookingDraft struct {
	Subject      string
	RoomID       int64
	StartTime    time.Time
	EndTime      time.Time
	Department   string
	Phone        string
	Attendees    int
	Note         string
	ResourceText string
	LayoutImage  *LayoutImage
}
