package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"platform-event-publisher/internal/pubsubapi"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

type mockPubSub struct {
	pubsubapi.UnimplementedPubSubServer
}

type noTokens struct{}

func (noTokens) ValidToken(string) bool { return false }

func TestRegisterServices_PubSubAndHealth(t *testing.T) {
	mockReg := &mockServiceRegistrar{}
	RegisterServices(mockReg, Deps{PubSub: &mockPubSub{}})

	assert.Equal(t, []string{pubsubapi.ServiceName, "grpc.health.v1.Health"}, mockReg.services)
}

func TestRegisterServices_NilPubSub(t *testing.T) {
	mockReg := &mockServiceRegistrar{}
	RegisterServices(mockReg, Deps{})
	assert.Equal(t, []string{"grpc.health.v1.Health"}, mockReg.services)
}

func TestNewGRPCServer_HealthIsPublicPubSubIsNot(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer(Deps{PubSub: &mockPubSub{}, Tokens: noTokens{}, TenantID: "t"})
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = pubsubapi.NewPubSubClient(conn).GetTopic(context.Background(), &pubsubapi.TopicRequest{TopicName: "/event/X__e"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "GetTopic without metadata")
}
