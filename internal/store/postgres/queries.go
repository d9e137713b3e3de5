package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, title, slug, details, maximum_attendees, price, created_at`

// attendeeColumns is the column list used for SELECT statements on the attendees table.
const attendeeColumns = `id, event_id, name, email, ticket_id, created_at, checked_in, check_in_time`

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translateError maps driver errors onto the store's sentinel errors.
// A malformed UUID cannot name an existing row, so it reads as not found.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return &store.UniqueViolationError{Constraint: pqErr.Constraint}
		case codeForeignKeyViolation, codeInvalidText:
			return fmt.Errorf("%s: %w", pqErr.Message, store.ErrNotFound)
		}
	}
	return err
}

func queryCreateEvent(ctx context.Context, db executor, e *model.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, title, slug, details, maximum_attendees, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID,
		e.Title,
		e.Slug,
		nullString(e.Details),
		nullIntPtr(e.MaximumAttendees),
		e.Price,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", translateError(err))
	}
	return nil
}

func queryGetEvent(ctx context.Context, db executor, id string, forUpdate bool) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	e, err := scanEvent(db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translateError(err)
	}
	return e, nil
}

func queryGetEventBySlug(ctx context.Context, db executor, slug string) (*model.Event, error) {
	e, err := scanEvent(db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
	if err != nil {
		return nil, translateError(err)
	}
	return e, nil
}

func queryListEvents(ctx context.Context, db executor) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

func queryCountAttendees(ctx context.Context, db executor, eventID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", translateError(err))
	}
	return n, nil
}

func queryFindAttendeeByEmail(ctx context.Context, db executor, eventID, email string) (*model.Attendee, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE event_id = $1 AND lower(email) = lower($2)`,
		eventID, email)
	a, err := scanAttendee(row)
	if err != nil {
		return nil, translateError(err)
	}
	return a, nil
}

func queryTicketIDExists(ctx context.Context, db executor, ticketID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM attendees WHERE ticket_id = $1)`, ticketID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ticket id: %w", err)
	}
	return exists, nil
}

func queryInsertAttendee(ctx context.Context, db executor, a *model.Attendee) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO attendees (event_id, name, email, ticket_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.EventID,
		a.Name,
		a.Email,
		a.TicketID,
		a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert attendee: %w", translateError(err))
	}
	return nil
}

func queryGetAttendeeByTicketID(ctx context.Context, db executor, ticketID string, forUpdate bool) (*model.Attendee, error) {
	q := `SELECT ` + attendeeColumns + ` FROM attendees WHERE ticket_id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	a, err := scanAttendee(db.QueryRowContext(ctx, q, ticketID))
	if err != nil {
		return nil, translateError(err)
	}
	return a, nil
}

// queryMarkCheckedIn flips checked_in only if it is still false, so two
// racing check-ins cannot both succeed even without a prior row lock.
func queryMarkCheckedIn(ctx context.Context, db executor, ticketID string, at time.Time) (*model.Attendee, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE attendees
		SET checked_in = TRUE, check_in_time = $2
		WHERE ticket_id = $1 AND checked_in = FALSE
		RETURNING `+attendeeColumns,
		ticketID, at,
	)
	a, err := scanAttendee(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check in: %w", err)
	}

	exists, err := queryTicketIDExists(ctx, db, ticketID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrAlreadyCheckedIn
	}
	return nil, store.ErrNotFound
}

func queryListAttendees(ctx context.Context, db executor, eventID string) ([]*model.Attendee, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE event_id = $1 ORDER BY created_at DESC, id DESC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", translateError(err))
	}
	defer rows.Close()
	attendees, err := scanAttendees(rows)
	if err != nil {
		return nil, fmt.Errorf("scan attendees: %w", err)
	}
	return attendees, nil
}

func queryListAllAttendees(ctx context.Context, db executor) ([]*model.Attendee, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+attendeeColumns+` FROM attendees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()
	attendees, err := scanAttendees(rows)
	if err != nil {
		return nil, fmt.Errorf("scan attendees: %w", err)
	}
	return attendees, nil
}

func queryDeleteAttendee(ctx context.Context, db executor, ticketID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM attendees WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
