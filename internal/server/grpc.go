package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "passin.v1.TicketingService"

// TicketingServiceServer is the gRPC surface. Requests and responses are
// Structs whose fields match the HTTP JSON bodies.
type TicketingServiceServer interface {
	CreateEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBadge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAttendees(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAttendee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ TicketingServiceServer = (*Server)(nil)

type unaryCall func(TicketingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TicketingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(TicketingServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes TicketingService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TicketingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateEvent", TicketingServiceServer.CreateEvent),
		unaryHandler("GetEvent", TicketingServiceServer.GetEvent),
		unaryHandler("Register", TicketingServiceServer.Register),
		unaryHandler("CheckIn", TicketingServiceServer.CheckIn),
		unaryHandler("GetBadge", TicketingServiceServer.GetBadge),
		unaryHandler("ListAttendees", TicketingServiceServer.ListAttendees),
		unaryHandler("DeleteAttendee", TicketingServiceServer.DeleteAttendee),
		unaryHandler("ListStations", TicketingServiceServer.ListStations),
		unaryHandler("Health", TicketingServiceServer.Health),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "passin/v1/ticketing.proto",
}

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers TicketingService, reflection, and returns the server ready to serve.
func NewGRPCServer(s *Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
		),
	)

	srv.RegisterService(&ServiceDesc, s)
	reflection.Register(srv)

	return srv
}

func (s *Server) CreateEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in model.EventInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	event, err := s.svc.CreateEvent(ctx, in)
	if err == nil {
		s.publish(ctx, events.TopicEventCreated, events.EventCreated{Event: event})
	}
	return respond(event, err)
}

// GetEvent looks an event up by "id", or by "slug" when no id is given.
func (s *Server) GetEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if id := stringField(req, "id"); id != "" {
		return respond(s.svc.GetEvent(ctx, id))
	}
	slug, err := requireField(req, "slug")
	if err != nil {
		return nil, err
	}
	return respond(s.svc.GetEventBySlug(ctx, slug))
}

func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	eventID, err := requireField(req, "event_id")
	if err != nil {
		return nil, err
	}
	var in model.RegistrationInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	attendee, err := s.svc.Register(ctx, eventID, in)
	if err == nil {
		s.publish(ctx, events.TopicAttendeeRegistered, events.AttendeeRegistered{Attendee: attendee})
	}
	return respond(attendee, err)
}

func (s *Server) CheckIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ticketID, err := requireField(req, "ticket_id")
	if err != nil {
		return nil, err
	}
	attendee, err := s.svc.CheckIn(ctx, ticketID)
	s.recordScan(stationFromContext(ctx), ticketID, attendee, err)
	if err == nil {
		s.publish(ctx, events.TopicAttendeeCheckedIn, events.AttendeeCheckedIn{Attendee: attendee})
	}
	return respond(attendee, err)
}

func (s *Server) GetBadge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ticketID, err := requireField(req, "ticket_id")
	if err != nil {
		return nil, err
	}
	return respond(s.svc.Badge(ctx, ticketID))
}

func (s *Server) ListAttendees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	eventID, err := requireField(req, "event_id")
	if err != nil {
		return nil, err
	}
	attendees, err := s.svc.ListAttendees(ctx, eventID)
	if attendees == nil {
		attendees = []*model.Attendee{}
	}
	return respond(map[string]any{"attendees": attendees, "total": len(attendees)}, err)
}

func (s *Server) DeleteAttendee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ticketID, err := requireField(req, "ticket_id")
	if err != nil {
		return nil, err
	}
	attendee, err := s.svc.DeleteAttendee(ctx, ticketID)
	if err == nil {
		s.publish(ctx, events.TopicAttendeeDeleted, events.AttendeeDeleted{
			EventID:  attendee.EventID,
			TicketID: attendee.TicketID,
		})
	}
	return respond(attendee, err)
}

// ListStations returns the station roster. The optional "within" field is a
// duration string such as "15m".
func (s *Server) ListStations(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var within time.Duration
	if v := stringField(req, "within"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "invalid within duration: %s", v)
		}
		within = d
	}
	return respond(stationsResponse{Stations: s.stations.Roster(within)}, nil)
}

// stationFromContext returns the calling station's name from incoming
// metadata, or "".
func stationFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(stations.MetadataKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (s *Server) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.Ping(ctx); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return respond(map[string]string{"status": "ok"}, nil)
}
