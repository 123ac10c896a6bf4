package events

import (
	"context"
	"time"
)

// Store is the persistence contract for events and attendee membership.
//
// AddAttendee and RemoveAttendee are the atomic membership primitives: the
// uniqueness of the attendee set is enforced by the store, not by a
// check-then-act sequence in the service, so concurrent calls for the same
// (event, user) pair cannot both succeed.
type Store interface {
	CreateEvent(ctx context.Context, event *Event) error
	// GetEventByID returns the event or a NotFoundError.
	GetEventByID(ctx context.Context, id string) (*Event, error)
	// HasDuplicate reports whether the creator already has an event with the
	// same name at the same date.
	HasDuplicate(ctx context.Context, creatorID, name string, date time.Time) (bool, error)
	ListEvents(ctx context.Context) ([]EventSummary, error)
	ListByCreator(ctx context.Context, creatorID string) ([]EventSummary, error)
	ListByAttendee(ctx context.Context, userID string) ([]EventSummary, error)
	UpdateEvent(ctx context.Context, event *Event) error
	// DeleteEvent removes the event and, by cascade, its attendee rows.
	DeleteEvent(ctx context.Context, id string) error

	// AddAttendee inserts the membership row if absent. It returns false,
	// with no mutation, when the user was already an attendee.
	AddAttendee(ctx context.Context, eventID, userID string) (bool, error)
	// RemoveAttendee deletes the membership row if present. It returns
	// false, with no mutation, when the user was not an attendee.
	RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error)
	// ListAttendees returns the attendee set in join order.
	ListAttendees(ctx context.Context, eventID string) ([]Attendee, error)
}

// Notifier delivers best-effort realtime notifications. Implementations
// must never block or fail the calling request; delivery to disconnected
// clients is silently dropped.
type Notifier interface {
	// Broadcast sends to every connected client.
	Broadcast(event string, payload interface{})
	// BroadcastToRoom sends to clients that joined the named room.
	BroadcastToRoom(room, event string, payload interface{})
}

// Realtime event types pushed to clients.
const (
	NotifyAttendeeUpdated = "attendeeUpdated"
	NotifyEventCreated    = "eventCreated"
	NotifyEventUpdated    = "eventUpdated"
	NotifyEventDeleted    = "eventDeleted"
)
