package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/passin/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		details      sql.NullString
		maxAttendees sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &details, &maxAttendees, &e.Price, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Details = details.String
	if maxAttendees.Valid {
		n := int(maxAttendees.Int64)
		e.MaximumAttendees = &n
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanAttendee scans a single row into a model.Attendee.
// The row must contain columns in the order defined by attendeeColumns.
func scanAttendee(row scannable) (*model.Attendee, error) {
	var a model.Attendee
	var checkInTime sql.NullTime
	err := row.Scan(&a.ID, &a.EventID, &a.Name, &a.Email, &a.TicketID, &a.CreatedAt, &a.CheckedIn, &checkInTime)
	if err != nil {
		return nil, err
	}
	if checkInTime.Valid {
		t := checkInTime.Time
		a.CheckInTime = &t
	}
	return &a, nil
}

// scanAttendees scans multiple rows into a slice of model.Attendee pointers.
func scanAttendees(rows *sql.Rows) ([]*model.Attendee, error) {
	var attendees []*model.Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendees, nil
}

// nullIntPtr converts a *int to a sql.NullInt64.
func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
