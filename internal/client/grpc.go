package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

const serviceName = "passin.v1.TicketingService"

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// invoke calls method with req encoded as a Struct and decodes the reply
// into result.
func (c *GRPCClient) invoke(ctx context.Context, method string, req, result any) error {
	in := &structpb.Struct{}
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		if err := protojson.Unmarshal(b, in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	if station := stationFrom(ctx); station != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, stations.MetadataKey, station)
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out); err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	b, err := protojson.Marshal(out)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(b, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// --- Events ---

func (c *GRPCClient) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	var event model.Event
	if err := c.invoke(ctx, "CreateEvent", in, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *GRPCClient) GetEvent(ctx context.Context, id string) (*model.EventDetails, error) {
	var event model.EventDetails
	if err := c.invoke(ctx, "GetEvent", map[string]string{"id": id}, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *GRPCClient) GetEventBySlug(ctx context.Context, slug string) (*model.EventDetails, error) {
	var event model.EventDetails
	if err := c.invoke(ctx, "GetEvent", map[string]string{"slug": slug}, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// --- Attendees ---

func (c *GRPCClient) Register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error) {
	req := map[string]string{"event_id": eventID, "name": in.Name, "email": in.Email}
	var attendee model.Attendee
	if err := c.invoke(ctx, "Register", req, &attendee); err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (c *GRPCClient) ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) {
	var resp listAttendeesResponse
	if err := c.invoke(ctx, "ListAttendees", map[string]string{"event_id": eventID}, &resp); err != nil {
		return nil, err
	}
	return resp.Attendees, nil
}

func (c *GRPCClient) CheckIn(ctx context.Context, ticketID string) (*model.Attendee, error) {
	var attendee model.Attendee
	if err := c.invoke(ctx, "CheckIn", map[string]string{"ticket_id": ticketID}, &attendee); err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (c *GRPCClient) Badge(ctx context.Context, ticketID string) (*model.Badge, error) {
	var badge model.Badge
	if err := c.invoke(ctx, "GetBadge", map[string]string{"ticket_id": ticketID}, &badge); err != nil {
		return nil, err
	}
	return &badge, nil
}

func (c *GRPCClient) DeleteAttendee(ctx context.Context, ticketID string) error {
	return c.invoke(ctx, "DeleteAttendee", map[string]string{"ticket_id": ticketID}, nil)
}

// --- Stations ---

func (c *GRPCClient) ListStations(ctx context.Context, within time.Duration) ([]stations.Entry, error) {
	req := map[string]string{}
	if within > 0 {
		req["within"] = within.String()
	}
	var resp listStationsResponse
	if err := c.invoke(ctx, "ListStations", req, &resp); err != nil {
		return nil, err
	}
	return resp.Stations, nil
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.invoke(ctx, "Health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}
