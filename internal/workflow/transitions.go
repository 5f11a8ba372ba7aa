// Package workflow governs booking status transitions: which transitions are
// legal, which the current identity may request, and how a request becomes an
// API mutation followed by a list refresh. The server remains the final
// authority; everything here is a client-side mirror of its rules.
package workflow

import (
	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/session"
)

// Action is a user intent against a booking.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
	ActionDelete  Action = "delete"
	ActionEdit    Action = "edit"
)

// target returns the status an action requests, for the actions that are
// status transitions.
func (a Action) target() (api.BookingStatus, bool) {
	switch a {
	case ActionApprove:
		return api.StatusApproved, true
	case ActionReject:
		return api.StatusRejected, true
	case ActionCancel:
		return api.StatusCancelled, true
	default:
		return "", false
	}
}

// Allowed reports whether the identity may request the action on the booking
// in its current status. This backs both the mutation precondition and UI
// control rendering: a control must not be shown to an actor this returns
// false for. The server re-checks every request regardless.
func Allowed(identity session.Identity, b api.Booking, action Action) bool {
	owner := identity.UserID != 0 && identity.UserID == b.UserID
	admin := identity.IsAdmin()

	switch action {
	case ActionApprove:
		// Re-approval of a rejected booking is an explicit new decision,
		// never an implicit revert.
		return admin && (b.Status == api.StatusPending || b.Status == api.StatusRejected)
	case ActionReject:
		return admin && (b.Status == api.StatusPending || b.Status == api.StatusApproved)
	case ActionCancel:
		return (owner || admin) && (b.Status == api.StatusPending || b.Status == api.StatusApproved)
	case ActionDelete:
		return admin && b.Status != api.StatusCancelled
	case ActionEdit:
		return admin && b.Status != api.StatusCancelled
	default:
		return false
	}
}

// Controls lists the actions the identity may take on the booking, in the
// order the UI renders them.
func Controls(identity session.Identity, b api.Booking) []Action {
	all := []Action{ActionApprove, ActionReject, ActionCancel, ActionEdit, ActionDelete}
	out := make([]Action, 0, len(all))
	for _, action := range all {
		if Allowed(identity, b, action) {
			out = append(out, action)
		}
	}
	return out
}
