package auth

import "context"

// UserStore is the persistence contract for user records. The service is
// written against this interface so tests can substitute an in-memory
// implementation.
type UserStore interface {
	// CreateUser inserts a new user. Duplicate username/email surfaces as a
	// ConflictError.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByEmail returns the user with the given (lowercased) email, or
	// a NotFoundError.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByID returns the user with the given id, or a NotFoundError.
	GetUserByID(ctx context.Context, id string) (*User, error)
}
