package model

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength    = 4
	minTitleLength   = 4
	minDetailsLength = 4
)

// FieldError describes a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// RegistrationInput is the caller-supplied part of a registration.
type RegistrationInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Normalize trims surrounding whitespace from both fields.
func (in RegistrationInput) Normalize() RegistrationInput {
	return RegistrationInput{Name: strings.TrimSpace(in.Name), Email: strings.TrimSpace(in.Email)}
}

// ValidateRegistration checks a normalized registration input.
func ValidateRegistration(in RegistrationInput) error {
	ve := &ValidationError{}
	if utf8.RuneCountInString(in.Name) < minNameLength {
		ve.add("name", "must be at least %d characters", minNameLength)
	}
	if in.Email == "" {
		ve.add("email", "is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		ve.add("email", "must be a valid email address")
	}
	return ve.orNil()
}

// EventInput is the caller-supplied part of an event.
type EventInput struct {
	Title            string   `json:"title"`
	Details          *string  `json:"details,omitempty"`
	MaximumAttendees *int     `json:"maximum_attendees,omitempty"`
	Price            *float64 `json:"price,omitempty"`
}

// ValidateEvent checks an event input. Details, capacity and price are
// optional but must be sensible when present.
func ValidateEvent(in EventInput) error {
	ve := &ValidationError{}
	if utf8.RuneCountInString(strings.TrimSpace(in.Title)) < minTitleLength {
		ve.add("title", "must be at least %d characters", minTitleLength)
	} else if GenerateSlug(in.Title) == "" {
		ve.add("title", "must contain at least one letter or digit")
	}
	if in.Details != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Details)) < minDetailsLength {
		ve.add("details", "must be at least %d characters", minDetailsLength)
	}
	if in.MaximumAttendees != nil && *in.MaximumAttendees <= 0 {
		ve.add("maximum_attendees", "must be a positive integer")
	}
	if in.Price != nil && *in.Price < 0 {
		ve.add("price", "must not be negative")
	}
	return ve.orNil()
}
