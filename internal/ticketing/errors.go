package ticketing

import (
	"errors"
	"fmt"
)

// Kind classifies why a ticketing operation failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindDuplicateRegistration
	KindCapacityExceeded
	KindConflict
	KindAlreadyCheckedIn
	KindExhaustedRetries
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicateRegistration:
		return "duplicate_registration"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindConflict:
		return "conflict"
	case KindAlreadyCheckedIn:
		return "already_checked_in"
	case KindExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateRegistration = errors.New("email already registered for this event")
	ErrCapacityExceeded      = errors.New("event has reached its maximum number of attendees")
	ErrConflict              = errors.New("concurrent update conflict, retry the request")
	ErrAlreadyCheckedIn      = errors.New("attendee already checked in")
	ErrExhaustedRetries      = errors.New("could not allocate a unique ticket id")
)

var sentinels = map[Kind]error{
	KindNotFound:              ErrNotFound,
	KindDuplicateRegistration: ErrDuplicateRegistration,
	KindCapacityExceeded:      ErrCapacityExceeded,
	KindConflict:              ErrConflict,
	KindAlreadyCheckedIn:      ErrAlreadyCheckedIn,
	KindExhaustedRetries:      ErrExhaustedRetries,
}

// Error is the typed failure returned by Service operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = sentinels[kind]
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == sentinels[e.Kind] {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Err, sentinels[e.Kind])
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may repeat the same request and
// expect a different outcome. Only lost races qualify.
func Retryable(err error) bool {
	return KindOf(err) == KindConflict
}
