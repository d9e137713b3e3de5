// Package postgres stores events and attendees in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const connectTimeout = 10 * time.Second

var (
	_ store.Store = (*PostgresStore)(nil)
	_ store.Store = (*txStore)(nil)
)

// PostgresStore is the pooled, non-transactional store. Row locks requested
// through the ForUpdate reads only take effect inside RunInTransaction.
type PostgresStore struct {
	conn
	db *sql.DB
}

// New connects to databaseURL and brings the schema up to date.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return wrap(db), nil
}

func wrap(db *sql.DB) *PostgresStore {
	return &PostgresStore{conn: conn{q: db}, db: db}
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migration source: %w", err)
	}
	target, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres: migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return fmt.Errorf("postgres: migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) Close() error { return s.db.Close() }

// RunInTransaction runs fn in a READ COMMITTED transaction. Competing
// writers are serialized by the ForUpdate reads, not by the isolation level.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := fn(&txStore{conn{q: tx, locking: true}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", translateError(err))
	}
	return nil
}

// txStore is handed to RunInTransaction callbacks.
type txStore struct {
	conn
}

// RunInTransaction joins the open transaction; there is no nesting.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (*txStore) Ping(context.Context) error { return nil }

// Close does nothing; the parent PostgresStore owns the pool.
func (*txStore) Close() error { return nil }

// conn carries the data methods shared by the pool and a transaction.
type conn struct {
	q       executor
	locking bool
}

func (c conn) CreateEvent(ctx context.Context, event *model.Event) error {
	return queryCreateEvent(ctx, c.q, event)
}

func (c conn) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, c.q, id, false)
}

func (c conn) GetEventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, c.q, id, c.locking)
}

func (c conn) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	return queryGetEventBySlug(ctx, c.q, slug)
}

func (c conn) ListEvents(ctx context.Context) ([]*model.Event, error) {
	return queryListEvents(ctx, c.q)
}

func (c conn) CountAttendees(ctx context.Context, eventID string) (int, error) {
	return queryCountAttendees(ctx, c.q, eventID)
}

func (c conn) FindAttendeeByEmail(ctx context.Context, eventID, email string) (*model.Attendee, error) {
	return queryFindAttendeeByEmail(ctx, c.q, eventID, email)
}

func (c conn) TicketIDExists(ctx context.Context, ticketID string) (bool, error) {
	return queryTicketIDExists(ctx, c.q, ticketID)
}

func (c conn) InsertAttendee(ctx context.Context, attendee *model.Attendee) error {
	return queryInsertAttendee(ctx, c.q, attendee)
}

func (c conn) GetAttendeeByTicketID(ctx context.Context, ticketID string) (*model.Attendee, error) {
	return queryGetAttendeeByTicketID(ctx, c.q, ticketID, false)
}

func (c conn) GetAttendeeByTicketIDForUpdate(ctx context.Context, ticketID string) (*model.Attendee, error) {
	return queryGetAttendeeByTicketID(ctx, c.q, ticketID, c.locking)
}

func (c conn) MarkCheckedIn(ctx context.Context, ticketID string, at time.Time) (*model.Attendee, error) {
	return queryMarkCheckedIn(ctx, c.q, ticketID, at)
}

func (c conn) ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) {
	return queryListAttendees(ctx, c.q, eventID)
}

func (c conn) ListAllAttendees(ctx context.Context) ([]*model.Attendee, error) {
	return queryListAllAttendees(ctx, c.q)
}

func (c conn) DeleteAttendee(ctx context.Context, ticketID string) error {
	return queryDeleteAttendee(ctx, c.q, ticketID)
}
