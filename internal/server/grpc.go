package server

import (
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"platform-event-publisher/internal/pubsubapi"
	"platform-event-publisher/internal/server/interceptors"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps holds the services and hooks the emulator's gRPC server is built from.
type Deps struct {
	// PubSub serves eventbus.v1.PubSub. If nil, the service is not registered.
	PubSub pubsubapi.PubSubServer
	// Health serves grpc.health.v1.Health. If nil, a server reporting SERVING is created.
	Health *health.Server
	// Tokens validates accesstoken metadata. If nil, session metadata is not checked.
	Tokens interceptors.TokenValidator
	// TenantID, when set, must match the tenantid metadata.
	TenantID string
	// Recorder receives one record per RPC. Optional.
	Recorder interceptors.CallRecorder
	Logger   zerolog.Logger
}

// NewGRPCServer returns a server with the telemetry and session interceptors chained and all
// services from deps registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	public := map[string]bool{healthCheckMethod: true}
	chain := []grpc.UnaryServerInterceptor{interceptors.TelemetryUnary(deps.Logger, deps.Recorder, public)}
	if deps.Tokens != nil {
		chain = append(chain, interceptors.SessionUnary(deps.Tokens, deps.TenantID, public))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(chain...))
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the gRPC services with the given server.
//
//   - eventbus.v1.PubSub    → internal/emulator
//   - grpc.health.v1.Health → google.golang.org/grpc/health
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.PubSub != nil {
		pubsubapi.RegisterPubSubServer(s, deps.PubSub)
	}
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
}
