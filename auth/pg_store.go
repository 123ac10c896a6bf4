package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Trident14/EMP-backend/apperror"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PgUserStore is the PostgreSQL-backed UserStore.
type PgUserStore struct {
	db *pgxpool.Pool
}

// NewPgUserStore creates a new PgUserStore.
func NewPgUserStore(db *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: db}
}

// CreateUser inserts a new user row. Unique violations on the username or
// email columns are mapped to ConflictError.
func (s *PgUserStore) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, password, is_guest)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.IsGuest,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return apperror.NewConflictError("username already exists", nil)
			}
			if strings.Contains(pgErr.ConstraintName, "email") {
				return apperror.NewConflictError("email already exists", nil)
			}
		}
		return apperror.NewDatabaseError("failed to create user", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *PgUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT id, username, email, password, is_guest, created_at, updated_at
	          FROM users WHERE email = $1`
	err := s.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.IsGuest, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with email '%s' not found", email), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by id.
func (s *PgUserStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	query := `SELECT id, username, email, password, is_guest, created_at, updated_at
	          FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.IsGuest, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by id", err)
	}
	return &user, nil
}
