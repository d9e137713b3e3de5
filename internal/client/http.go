package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

// maxResponseBytes caps how much of a response body the client will read.
const maxResponseBytes = 4 << 20

// HTTPClient talks to the /v1 JSON API.
type HTTPClient struct {
	base string
	hc   *http.Client
}

// NewHTTPClient returns a client for the server at baseURL, for example
// "http://localhost:8080". A trailing slash is ignored.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error { return nil }

// APIError is a non-2xx response. Message is the server's "error" field, or
// the raw body when the response is not a JSON error document.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []model.FieldError
	Retry      bool

	body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func eventPath(id string) string { return "/v1/events/" + url.PathEscape(id) }
func attendeePath(id string) string { return "/v1/attendees/" + url.PathEscape(id) }

func (c *HTTPClient) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	return call[model.Event](ctx, c, http.MethodPost, "/v1/events", in)
}

func (c *HTTPClient) GetEvent(ctx context.Context, id string) (*model.EventDetails, error) {
	return call[model.EventDetails](ctx, c, http.MethodGet, eventPath(id), nil)
}

func (c *HTTPClient) GetEventBySlug(ctx context.Context, slug string) (*model.EventDetails, error) {
	return call[model.EventDetails](ctx, c, http.MethodGet, "/v1/slugs/"+url.PathEscape(slug), nil)
}

func (c *HTTPClient) Register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error) {
	return call[model.Attendee](ctx, c, http.MethodPost, eventPath(eventID)+"/attendees", in)
}

func (c *HTTPClient) ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) {
	resp, err := call[listAttendeesResponse](ctx, c, http.MethodGet, eventPath(eventID)+"/attendees", nil)
	if err != nil {
		return nil, err
	}
	return resp.Attendees, nil
}

func (c *HTTPClient) CheckIn(ctx context.Context, ticketID string) (*model.Attendee, error) {
	return call[model.Attendee](ctx, c, http.MethodPost, attendeePath(ticketID)+"/check-in", nil)
}

func (c *HTTPClient) Badge(ctx context.Context, ticketID string) (*model.Badge, error) {
	return call[model.Badge](ctx, c, http.MethodGet, attendeePath(ticketID)+"/badge", nil)
}

func (c *HTTPClient) DeleteAttendee(ctx context.Context, ticketID string) error {
	_, err := c.do(ctx, http.MethodDelete, attendeePath(ticketID), nil)
	return err
}

func (c *HTTPClient) ListStations(ctx context.Context, within time.Duration) ([]stations.Entry, error) {
	path := "/v1/stations"
	if within > 0 {
		path += "?" + url.Values{"within": {within.String()}}.Encode()
	}
	resp, err := call[listStationsResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Stations, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health reports the server's status string. A 503 that still carries a
// status document is a result, not an error.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	resp, err := call[healthResponse](ctx, c, http.MethodGet, "/v1/health", nil)
	if err == nil {
		return resp.Status, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		var h healthResponse
		if json.Unmarshal(apiErr.body, &h) == nil && h.Status != "" {
			return h.Status, nil
		}
	}
	return "", err
}

// call sends body as JSON and decodes a successful response into a new T.
func call[T any](ctx context.Context, c *HTTPClient, method, path string, body any) (*T, error) {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return out, nil
}

// do performs one request and returns the body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encoding request: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if station := stationFrom(ctx); station != "" {
		req.Header.Set(stations.Header, station)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}
	if resp.StatusCode < 300 {
		return data, nil
	}
	return nil, decodeAPIError(resp.StatusCode, data)
}

func decodeAPIError(status int, body []byte) *APIError {
	var doc struct {
		Error  string             `json:"error"`
		Fields []model.FieldError `json:"fields"`
		Retry  bool               `json:"retry"`
	}
	e := &APIError{StatusCode: status, body: body}
	if json.Unmarshal(body, &doc) == nil && doc.Error != "" {
		e.Message, e.Fields, e.Retry = doc.Error, doc.Fields, doc.Retry
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
