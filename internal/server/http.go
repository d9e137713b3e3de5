package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", s.handleCreateEvent)
	mux.HandleFunc("GET /v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /v1/slugs/{slug}", s.handleGetEventBySlug)
	mux.HandleFunc("POST /v1/events/{id}/attendees", s.handleRegister)
	mux.HandleFunc("GET /v1/events/{id}/attendees", s.handleListAttendees)
	mux.HandleFunc("POST /v1/attendees/{ticket_id}/check-in", s.handleCheckIn)
	mux.HandleFunc("GET /v1/attendees/{ticket_id}/check-in", s.handleCheckIn)
	mux.HandleFunc("GET /v1/attendees/{ticket_id}/badge", s.handleBadge)
	mux.HandleFunc("DELETE /v1/attendees/{ticket_id}", s.handleDeleteAttendee)
	mux.HandleFunc("GET /v1/stations", s.handleListStations)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return RecoveryMiddleware(LoggingMiddleware(mux))
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return inputError("invalid JSON body: " + err.Error())
	}
	return nil
}

// handleCreateEvent handles POST /v1/events.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}

	event, err := s.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.publish(r.Context(), events.TopicEventCreated, events.EventCreated{Event: event})

	writeJSON(w, http.StatusCreated, event)
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// handleGetEventBySlug handles GET /v1/slugs/{slug}.
func (s *Server) handleGetEventBySlug(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.GetEventBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// handleRegister handles POST /v1/events/{id}/attendees.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.RegistrationInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}

	attendee, err := s.svc.Register(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.publish(r.Context(), events.TopicAttendeeRegistered, events.AttendeeRegistered{Attendee: attendee})

	writeJSON(w, http.StatusCreated, attendee)
}

// handleListAttendees handles GET /v1/events/{id}/attendees.
func (s *Server) handleListAttendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := s.svc.ListAttendees(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if attendees == nil {
		attendees = []*model.Attendee{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attendees": attendees,
		"total":     len(attendees),
	})
}

// handleCheckIn handles POST and GET /v1/attendees/{ticket_id}/check-in.
// GET exists so the URL printed on a badge works when scanned.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticket_id")
	attendee, err := s.svc.CheckIn(r.Context(), ticketID)
	s.recordScan(r.Header.Get(stations.Header), ticketID, attendee, err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.publish(r.Context(), events.TopicAttendeeCheckedIn, events.AttendeeCheckedIn{Attendee: attendee})

	writeJSON(w, http.StatusOK, attendee)
}

// handleBadge handles GET /v1/attendees/{ticket_id}/badge.
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := s.svc.Badge(r.Context(), r.PathValue("ticket_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badge)
}

// handleDeleteAttendee handles DELETE /v1/attendees/{ticket_id}.
func (s *Server) handleDeleteAttendee(w http.ResponseWriter, r *http.Request) {
	attendee, err := s.svc.DeleteAttendee(r.Context(), r.PathValue("ticket_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.publish(r.Context(), events.TopicAttendeeDeleted, events.AttendeeDeleted{
		EventID:  attendee.EventID,
		TicketID: attendee.TicketID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleListStations handles GET /v1/stations. The optional within query
// parameter (a Go duration such as 15m) hides stations idle for longer.
func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	var within time.Duration
	if v := r.URL.Query().Get("within"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeServiceError(w, inputError("invalid within duration: "+v))
			return
		}
		within = d
	}
	writeJSON(w, http.StatusOK, stationsResponse{Stations: s.stations.Roster(within)})
}

type stationsResponse struct {
	Stations []stations.Entry `json:"stations"`
}
