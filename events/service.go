package events

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/Trident14/EMP-backend/apperror"
	"github.com/Trident14/EMP-backend/auth"
)

// UserFinder is the slice of the user store the event service needs: looking
// up the caller to enforce the guest restriction on event creation.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*auth.User, error)
}

// EventService holds the business logic for events and attendance.
// The notifier is an injected dependency, not ambient global state; every
// broadcast happens only after the corresponding persistence write has been
// acknowledged, and a failed or dropped delivery never affects the caller.
type EventService struct {
	store    Store
	users    UserFinder
	notifier Notifier
}

// NewEventService creates a new EventService.
func NewEventService(store Store, users UserFinder, notifier Notifier) *EventService {
	return &EventService{store: store, users: users, notifier: notifier}
}

// Create creates a new event owned by the caller. Guest accounts may not
// create events, and a creator may not have two events with the same name at
// the same date.
func (s *EventService) Create(ctx context.Context, creatorID string, req CreateEventRequest) (*EventResponse, error) {
	if req.Name == "" || req.Description == "" || req.Location == "" || req.Date.IsZero() {
		return nil, apperror.NewValidationError("name, description, date, and location are required", nil)
	}

	user, err := s.users.GetUserByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if user.IsGuest {
		return nil, apperror.NewForbiddenError("guest accounts cannot create events", nil)
	}

	duplicate, err := s.store.HasDuplicate(ctx, creatorID, req.Name, req.Date)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, apperror.NewConflictError("you already have an event with this name at the same date", nil)
	}

	event := &Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		CreatorID:   creatorID,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.Broadcast(NotifyEventCreated, event)

	return &EventResponse{Event: event, Attendees: []Attendee{}, AttendeesCount: 0}, nil
}

// List returns all events with creator username and attendee count. Public,
// no authentication required.
func (s *EventService) List(ctx context.Context) ([]EventSummary, error) {
	return s.store.ListEvents(ctx)
}

// Mine returns the events created by the caller.
func (s *EventService) Mine(ctx context.Context, creatorID string) ([]EventSummary, error) {
	return s.store.ListByCreator(ctx, creatorID)
}

// Registrations returns the events the caller is attending.
func (s *EventService) Registrations(ctx context.Context, userID string) ([]EventSummary, error) {
	return s.store.ListByAttendee(ctx, userID)
}

// Update applies a partial update to an event. Only the creator may update;
// the creator reference itself is immutable.
func (s *EventService) Update(ctx context.Context, eventID, callerID string, req UpdateEventRequest) (*Event, error) {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != callerID {
		return nil, apperror.NewForbiddenError("only the event creator can update this event", nil)
	}

	if req.Name != nil && *req.Name != "" {
		event.Name = *req.Name
	}
	if req.Description != nil && *req.Description != "" {
		event.Description = *req.Description
	}
	if req.Date != nil && !req.Date.IsZero() {
		event.Date = *req.Date
	}
	if req.Location != nil && *req.Location != "" {
		event.Location = *req.Location
	}

	if err := s.store.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.BroadcastToRoom(event.ID, NotifyEventUpdated, event)
	s.notifier.Broadcast(NotifyEventUpdated, event)

	return event, nil
}

// Delete removes an event. Only the creator may delete.
func (s *EventService) Delete(ctx context.Context, eventID, callerID string) error {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != callerID {
		return apperror.NewForbiddenError("only the event creator can delete this event", nil)
	}

	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}

	s.notifier.BroadcastToRoom(eventID, NotifyEventDeleted, map[string]string{"eventId": eventID})
	s.notifier.Broadcast(NotifyEventDeleted, map[string]string{"eventId": eventID})

	return nil
}

// Join adds the caller to the event's attendee set.
//
// The membership invariant is delegated to the store's atomic add-if-absent
// primitive, so a repeat join (including a concurrent one) reports
// "already attending" without mutating anything. No broadcast is emitted on
// a failed join.
func (s *EventService) Join(ctx context.Context, eventID, userID string) (*EventResponse, error) {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	added, err := s.store.AddAttendee(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, apperror.NewBadRequestError("you are already attending this event", nil)
	}

	return s.attendeeChanged(ctx, event)
}

// Leave removes the caller from the event's attendee set. Mirrors Join:
// the store's remove-if-present primitive makes a repeat leave a rejected
// no-op.
func (s *EventService) Leave(ctx context.Context, eventID, userID string) (*EventResponse, error) {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveAttendee(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, apperror.NewBadRequestError("you are not attending this event", nil)
	}

	return s.attendeeChanged(ctx, event)
}

// attendeeChanged reloads the attendee set after a successful membership
// write and fans the change out to the event's room and to all clients.
func (s *EventService) attendeeChanged(ctx context.Context, event *Event) (*EventResponse, error) {
	attendees, err := s.store.ListAttendees(ctx, event.ID)
	if err != nil {
		// The write itself succeeded; surface the reload failure but log it
		// since the caller's mutation is already durable.
		log.Printf("attendee list reload failed for event %s: %v", event.ID, err)
		return nil, err
	}

	change := AttendeeChange{
		EventID:        event.ID,
		Attendees:      attendees,
		AttendeesCount: len(attendees),
	}
	s.notifier.BroadcastToRoom(event.ID, NotifyAttendeeUpdated, change)
	s.notifier.Broadcast(NotifyAttendeeUpdated, change)

	return &EventResponse{
		Event:          event,
		Attendees:      attendees,
		AttendeesCount: len(attendees),
	}, nil
}
