package server

import (
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/ticketing"
)

// errorResponse is the JSON body of every HTTP error.
type errorResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
	Retry  bool               `json:"retry,omitempty"`
}

type errorMapping struct {
	status int
	code   codes.Code
}

var kindMappings = map[ticketing.Kind]errorMapping{
	ticketing.KindNotFound:              {http.StatusNotFound, codes.NotFound},
	ticketing.KindDuplicateRegistration: {http.StatusConflict, codes.AlreadyExists},
	ticketing.KindCapacityExceeded:      {http.StatusForbidden, codes.ResourceExhausted},
	ticketing.KindConflict:              {http.StatusConflict, codes.Aborted},
	ticketing.KindAlreadyCheckedIn:      {http.StatusConflict, codes.FailedPrecondition},
}

// classify maps err onto a transport status and client-facing body.
// Unclassified errors, ticket ID exhaustion included, are logged and
// hidden behind a generic message.
func classify(err error) (errorMapping, errorResponse) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return errorMapping{http.StatusBadRequest, codes.InvalidArgument}, errorResponse{Error: ve.Error(), Fields: ve.Errors}
	}
	var ie inputError
	if errors.As(err, &ie) {
		return errorMapping{http.StatusBadRequest, codes.InvalidArgument}, errorResponse{Error: ie.Error()}
	}

	if m, ok := kindMappings[ticketing.KindOf(err)]; ok {
		return m, errorResponse{Error: err.Error(), Retry: ticketing.Retryable(err)}
	}

	slog.Error("request failed", "error", err)
	return errorMapping{http.StatusInternalServerError, codes.Internal}, errorResponse{Error: "internal server error"}
}

// writeServiceError writes err as a JSON error response.
func writeServiceError(w http.ResponseWriter, err error) {
	m, body := classify(err)
	writeJSON(w, m.status, body)
}

// grpcError converts err into a gRPC status error.
func grpcError(err error) error {
	m, body := classify(err)
	return status.Error(m.code, body.Error)
}
