package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CallRecorder receives one record per RPC.
type CallRecorder interface {
	RecordCall(fullMethod string, code codes.Code)
}

// TelemetryUnary returns a unary server interceptor that records every RPC (including ones
// rejected by later interceptors) and writes an access log line. rec may be nil.
// skipMethods are recorded but not logged (e.g. health checks).
func TelemetryUnary(logger zerolog.Logger, rec CallRecorder, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if rec != nil {
			rec.RecordCall(info.FullMethod, code)
		}
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		s, _ := extractSession(ctx)
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("tenant_id", s.TenantID).
			Msg("grpc request")
		return resp, err
	}
}
