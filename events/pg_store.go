package events

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Trident14/EMP-backend/apperror"
)

// pgForeignKeyViolation is the PostgreSQL error code for FK violations.
const pgForeignKeyViolation = "23503"

// PgStore is the PostgreSQL-backed event Store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new PgStore.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// CreateEvent inserts a new event row.
func (s *PgStore) CreateEvent(ctx context.Context, event *Event) error {
	query := `INSERT INTO events (id, name, description, date, location, creator_id)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		event.ID, event.Name, event.Description, event.Date, event.Location, event.CreatorID,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return apperror.NewDatabaseError("failed to create event", err)
	}
	return nil
}

// GetEventByID retrieves an event by id.
func (s *PgStore) GetEventByID(ctx context.Context, id string) (*Event, error) {
	var event Event
	query := `SELECT id, name, description, date, location, creator_id, created_at, updated_at
	          FROM events WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&event.ID, &event.Name, &event.Description, &event.Date,
		&event.Location, &event.CreatorID, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("event not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get event", err)
	}
	return &event, nil
}

// HasDuplicate reports whether the creator already has an event with the
// same name at the same date.
func (s *PgStore) HasDuplicate(ctx context.Context, creatorID, name string, date time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
	              SELECT 1 FROM events WHERE creator_id = $1 AND name = $2 AND date = $3
	          )`
	if err := s.db.QueryRow(ctx, query, creatorID, name, date).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check for duplicate event", err)
	}
	return exists, nil
}

// summaryQuery joins events with their creator and attendee count.
const summaryQuery = `
	SELECT e.id, e.name, e.description, e.date, e.location,
	       u.username AS creator,
	       count(a.user_id) AS attendees_count
	FROM events e
	JOIN users u ON u.id = e.creator_id
	LEFT JOIN event_attendees a ON a.event_id = e.id
`

func (s *PgStore) scanSummaries(rows pgx.Rows) ([]EventSummary, error) {
	defer rows.Close()
	summaries := []EventSummary{}
	for rows.Next() {
		var sum EventSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.Date,
			&sum.Location, &sum.Creator, &sum.AttendeesCount); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan event summary", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read event summaries", err)
	}
	return summaries, nil
}

// ListEvents returns all events with creator username and attendee count.
func (s *PgStore) ListEvents(ctx context.Context) ([]EventSummary, error) {
	rows, err := s.db.Query(ctx, summaryQuery+`
		GROUP BY e.id, u.username
		ORDER BY e.date ASC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list events", err)
	}
	return s.scanSummaries(rows)
}

// ListByCreator returns events created by the given user.
func (s *PgStore) ListByCreator(ctx context.Context, creatorID string) ([]EventSummary, error) {
	rows, err := s.db.Query(ctx, summaryQuery+`
		WHERE e.creator_id = $1
		GROUP BY e.id, u.username
		ORDER BY e.date ASC`, creatorID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list events by creator", err)
	}
	return s.scanSummaries(rows)
}

// ListByAttendee returns events the given user is attending.
func (s *PgStore) ListByAttendee(ctx context.Context, userID string) ([]EventSummary, error) {
	rows, err := s.db.Query(ctx, summaryQuery+`
		WHERE e.id IN (SELECT event_id FROM event_attendees WHERE user_id = $1)
		GROUP BY e.id, u.username
		ORDER BY e.date ASC`, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list events by attendee", err)
	}
	return s.scanSummaries(rows)
}

// UpdateEvent persists changes to an event's mutable fields.
func (s *PgStore) UpdateEvent(ctx context.Context, event *Event) error {
	query := `UPDATE events
	          SET name = $2, description = $3, date = $4, location = $5, updated_at = now()
	          WHERE id = $1
	          RETURNING updated_at`
	err := s.db.QueryRow(ctx, query,
		event.ID, event.Name, event.Description, event.Date, event.Location,
	).Scan(&event.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("event not found", nil)
		}
		return apperror.NewDatabaseError("failed to update event", err)
	}
	return nil
}

// DeleteEvent removes an event; attendee rows cascade.
func (s *PgStore) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("event not found", nil)
	}
	return nil
}

// AddAttendee atomically inserts the membership row if absent. The composite
// primary key on (event_id, user_id) makes ON CONFLICT DO NOTHING the
// add-if-absent primitive: of two concurrent joins for the same pair,
// exactly one insert lands.
func (s *PgStore) AddAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, eventID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			// Event deleted between the existence check and the insert.
			return false, apperror.NewNotFoundError("event not found", nil)
		}
		return false, apperror.NewDatabaseError("failed to add attendee", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveAttendee atomically deletes the membership row if present.
func (s *PgStore) RemoveAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`,
		eventID, userID)
	if err != nil {
		return false, apperror.NewDatabaseError("failed to remove attendee", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAttendees returns the attendee set ordered by join time.
func (s *PgStore) ListAttendees(ctx context.Context, eventID string) ([]Attendee, error) {
	query := `SELECT u.id, u.username, u.email
	          FROM event_attendees a
	          JOIN users u ON u.id = a.user_id
	          WHERE a.event_id = $1
	          ORDER BY a.joined_at ASC`
	rows, err := s.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list attendees", err)
	}
	defer rows.Close()

	attendees := []Attendee{}
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.ID, &a.Username, &a.Email); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan attendee", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read attendees", err)
	}
	return attendees, nil
}
