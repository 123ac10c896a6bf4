package auth

import "time"

// User represents a registered account.
// The hashed password is never serialized into API responses.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	IsGuest        bool      `json:"is_guest"` // Guest accounts may attend events but not create them
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
