// Package events implements event management: CRUD on events, the
// attendee-membership mutation path (join/leave), and the real-time
// notifications that follow attendance changes.
package events

import "time"

// Event represents an event record. Attendee membership lives in its own
// table and is loaded separately.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	CreatorID   string    `json:"creator_id"` // Immutable, set at creation
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attendee is a user reference inside an event's attendee set.
type Attendee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
