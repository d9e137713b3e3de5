package server

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// rpcLevel picks the log level for a finished call. Refusals at the door
// (unknown ticket, already checked in, event full) are ordinary traffic.
func rpcLevel(code codes.Code) slog.Level {
	switch code {
	case codes.OK, codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.FailedPrecondition, codes.ResourceExhausted, codes.Aborted:
		return slog.LevelInfo
	case codes.Canceled, codes.DeadlineExceeded, codes.Unavailable:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// rpcAttrs are the attributes shared by every RPC log line.
func rpcAttrs(ctx context.Context, info *grpc.UnaryServerInfo) []any {
	attrs := []any{"rpc", path.Base(info.FullMethod)}
	if station := stationFromContext(ctx); station != "" {
		attrs = append(attrs, "station", station)
	}
	return attrs
}

// LoggingInterceptor logs one line per unary call with its status code and
// duration.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	st := status.Convert(err)
	attrs := append(rpcAttrs(ctx, info), "code", st.Code().String(), "duration", time.Since(start))
	if err != nil {
		attrs = append(attrs, "error", st.Message())
	}
	slog.Log(ctx, rpcLevel(st.Code()), "rpc completed", attrs...)
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if rv := recover(); rv != nil {
			attrs := append(rpcAttrs(ctx, info), "panic", fmt.Sprint(rv), "stack", string(debug.Stack()))
			slog.Error("panic recovered in gRPC handler", attrs...)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}
