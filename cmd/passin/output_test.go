package main

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/alfredjeanlab/passin/internal/client"
	"github.com/alfredjeanlab/passin/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDescribeError(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want string
	}{
		{"API", &client.APIError{StatusCode: http.StatusNotFound, Message: "check-in: not found"}, "check-in: not found"},
		{"Fields", fmt.Errorf("wrapped: %w", &client.APIError{
			StatusCode: http.StatusBadRequest,
			Message:    "validation failed",
			Fields:     []model.FieldError{{Field: "name", Message: "too short"}, {Field: "email", Message: "invalid"}},
		}), "name: too short; email: invalid"},
		{"Retry", &client.APIError{StatusCode: http.StatusConflict, Message: "conflict", Retry: true}, "conflict (retry)"},
		{"GRPC", status.Error(codes.NotFound, "register: event x: not found"), "register: event x: not found"},
		{"Plain", errors.New("boom"), "boom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeError(tc.err); got != tc.want {
				t.Errorf("describeError() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestColorizeHelpOutput_NoColor(t *testing.T) {
	in := "Usage:\n  passin <command>\n\nEvents:\n  event  Create and inspect events\n"
	if got := colorizeHelpOutput(in); got != in {
		t.Errorf("expected help unchanged without color, got %q", got)
	}
}
