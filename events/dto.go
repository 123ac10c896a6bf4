package events

import "time"

// CreateEventRequest is the payload for creating an event.
type CreateEventRequest struct {
	Name        string    `json:"name" example:"Go Meetup"`
	Description string    `json:"description" example:"Monthly gathering"`
	Date        time.Time `json:"date" example:"2025-06-01T18:00:00Z"`
	Location    string    `json:"location" example:"Community Hall"`
}

// UpdateEventRequest is the payload for updating an event. Pointer fields
// allow partial updates: nil means "leave unchanged".
type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Location    *string    `json:"location,omitempty"`
}

// EventSummary is the public listing shape: event fields plus the creator's
// username and the attendee count.
type EventSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Location       string    `json:"location"`
	Creator        string    `json:"creator"`
	AttendeesCount int       `json:"attendeesCount"`
}

// EventResponse is returned from mutating operations: the event with its
// full attendee list.
type EventResponse struct {
	Event          *Event     `json:"event"`
	Attendees      []Attendee `json:"attendees"`
	AttendeesCount int        `json:"attendeesCount"`
}

// AttendeeChange is the realtime payload broadcast after a successful join
// or leave.
type AttendeeChange struct {
	EventID        string     `json:"eventId"`
	Attendees      []Attendee `json:"attendees"`
	AttendeesCount int        `json:"attendeesCount"`
}
