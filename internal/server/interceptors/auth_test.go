package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type staticTokens map[string]bool

func (s staticTokens) ValidToken(token string) bool { return s[token] }

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	s, ok := SessionFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "no session in context")
	}
	return s, nil
}

var publishInfo = &grpc.UnaryServerInfo{FullMethod: "/eventbus.v1.PubSub/Publish"}

func TestSessionUnary_PublicMethod(t *testing.T) {
	interceptor := SessionUnary(staticTokens{}, "tenant", map[string]bool{"/grpc.health.v1.Health/Check": true})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "success", nil }

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestSessionUnary_MissingMetadata(t *testing.T) {
	interceptor := SessionUnary(staticTokens{"tok1": true}, "tenant", nil)
	cases := map[string]context.Context{
		"no metadata":      context.Background(),
		"no token":         incoming("instanceurl", "https://x", "tenantid", "tenant"),
		"no instance url":  incoming("accesstoken", "tok1", "tenantid", "tenant"),
		"no tenant":        incoming("accesstoken", "tok1", "instanceurl", "https://x"),
		"blank token only": incoming("accesstoken", " ", "instanceurl", "https://x", "tenantid", "tenant"),
	}
	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := interceptor(ctx, "request", publishInfo, okHandler)
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}
}

func TestSessionUnary_InvalidToken(t *testing.T) {
	interceptor := SessionUnary(staticTokens{"tok1": true}, "tenant", nil)
	ctx := incoming("accesstoken", "stale", "instanceurl", "https://x", "tenantid", "tenant")
	_, err := interceptor(ctx, "request", publishInfo, okHandler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestSessionUnary_TenantMismatch(t *testing.T) {
	interceptor := SessionUnary(staticTokens{"tok1": true}, "tenant", nil)
	ctx := incoming("accesstoken", "tok1", "instanceurl", "https://x", "tenantid", "other")
	_, err := interceptor(ctx, "request", publishInfo, okHandler)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestSessionUnary_ValidSessionInContext(t *testing.T) {
	interceptor := SessionUnary(staticTokens{"tok1": true}, "tenant", nil)
	ctx := incoming("accesstoken", "tok1", "instanceurl", "https://x.my.salesforce.com", "tenantid", "tenant")
	resp, err := interceptor(ctx, "request", publishInfo, okHandler)
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "tok1", InstanceURL: "https://x.my.salesforce.com", TenantID: "tenant"}, resp)
}
