// Package idgen allocates short, URL-safe ticket IDs backed by nanoid.
package idgen

import (
	"context"
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the URL-safe character set used for ticket IDs.
var Alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Length is the number of characters in a ticket ID.
var Length = 10

// DefaultMaxAttempts bounds how many candidates Allocate tries.
const DefaultMaxAttempts = 5

// ErrExhaustedRetries is returned when every candidate collided with an
// existing ticket.
var ErrExhaustedRetries = errors.New("idgen: ticket id allocation exhausted retries")

// Generate returns a random candidate ID. It does not check uniqueness.
func Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// Existence reports whether a ticket ID is already taken.
type Existence interface {
	TicketIDExists(ctx context.Context, ticketID string) (bool, error)
}

// Allocator hands out ticket IDs that did not exist at the time of the
// check. The check is advisory: the store's unique constraint remains the
// final arbiter, and callers must handle a collision at insert time.
type Allocator struct {
	exists      Existence
	generate    func() (string, error)
	maxAttempts int

	// OnCollision, if set, is called for every candidate that was taken.
	OnCollision func()
}

// NewAllocator returns an Allocator that checks candidates against exists.
func NewAllocator(exists Existence) *Allocator {
	return &Allocator{exists: exists, generate: Generate, maxAttempts: DefaultMaxAttempts}
}

// Allocate returns a fresh ticket ID, or ErrExhaustedRetries after
// DefaultMaxAttempts consecutive collisions.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		id, err := a.generate()
		if err != nil {
			return "", err
		}
		taken, err := a.exists.TicketIDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("checking ticket id: %w", err)
		}
		if !taken {
			return id, nil
		}
		if a.OnCollision != nil {
			a.OnCollision()
		}
	}
	return "", ErrExhaustedRetries
}
