package pubsub_test

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/emulator"
	"platform-event-publisher/internal/event"
	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/pubsub"
	"platform-event-publisher/internal/pubsubapi"
)

const (
	tenantID = "00D000000000001"
	topic    = "/event/Product_Configuration__e"
)

type harness struct {
	emu  *emulator.Emulator
	auth auth.Authenticator
	opts pubsub.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	emu, err := emulator.New(emulator.Options{Identity: emulator.Identity{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "integration@example.com",
		Secret:       "pwTOKEN",
		TenantID:     tenantID,
	}}, zerolog.Nop())
	require.NoError(t, err)

	httpSrv := httptest.NewServer(emu.HTTP)
	t.Cleanup(httpSrv.Close)

	lis := bufconn.Listen(1 << 20)
	grpcSrv := emu.GRPCServer()
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	authenticator := auth.NewPasswordProvider(auth.Credentials{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		Username:      "integration@example.com",
		Password:      "pw",
		SecurityToken: "TOKEN",
	}, httpSrv.URL+"/services/oauth2/token", httpSrv.Client(), zerolog.Nop())

	return &harness{
		emu:  emu,
		auth: authenticator,
		opts: pubsub.Options{
			Endpoint:    "passthrough:///bufnet",
			TenantID:    tenantID,
			Insecure:    true,
			CreatedByID: "005000000000001",
			DialOptions: []grpc.DialOption{
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
			},
		},
	}
}

func (h *harness) connect(t *testing.T) *pubsub.Client {
	t.Helper()
	c, err := pubsub.Connect(context.Background(), h.opts, h.auth, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetTopic_ResolvesSchema(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)

	tp, err := c.GetTopic(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, topic, tp.Name)
	assert.NotEmpty(t, tp.SchemaID)
	assert.True(t, tp.CanPublish)
	assert.Equal(t, "Product_Configuration__e", tp.Schema.(*avro.RecordSchema).Name())
	assert.Equal(t, 1, h.emu.PubSub.Calls(pubsubapi.GetTopicMethod))
	assert.Equal(t, 1, h.emu.PubSub.Calls(pubsubapi.GetSchemaMethod))
}

func TestGetTopic_FailsFastWithoutSchemaCall(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)

	_, err := c.GetTopic(context.Background(), "/event/Missing__e")
	require.Error(t, err)
	assert.True(t, eventerr.IsSchemaResolution(err))
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
	assert.Equal(t, 0, h.emu.PubSub.Calls(pubsubapi.GetSchemaMethod))
}

func TestGetTopic_SchemaFailure(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	h.emu.PubSub.FailNext(pubsubapi.GetSchemaMethod, status.Error(codes.Internal, "schema store down"))

	_, err := c.GetTopic(context.Background(), topic)
	require.Error(t, err)
	assert.True(t, eventerr.IsSchemaResolution(err))
	assert.Contains(t, err.Error(), "get schema")
}

func TestPublish_AcceptsEvent(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	tp, err := c.GetTopic(context.Background(), topic)
	require.NoError(t, err)

	ev := event.New(map[string]any{"Product__c": "ABC123"})
	res, err := c.Publish(context.Background(), tp, ev)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, res.EventID)
	assert.Len(t, res.ReplayID, 8)
	assert.Equal(t, tp.SchemaID, res.SchemaID)
	assert.Equal(t, topic, res.Topic)
	assert.Equal(t, c.InstanceURL(), res.InstanceURL)

	published := h.emu.PubSub.Published()
	require.Len(t, published, 1)
	assert.Equal(t, ev.ID, published[0].ID)
	assert.Equal(t, "005000000000001", published[0].Fields["CreatedById"])
	assert.EqualValues(t, ev.CreatedAt.UnixMilli(), published[0].Fields["CreatedDate"])
}

func TestPublish_RPCFailureIsPublishError(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	tp, err := c.GetTopic(context.Background(), topic)
	require.NoError(t, err)

	h.emu.PubSub.FailNext(pubsubapi.PublishMethod, status.Error(codes.Unavailable, "try later"))
	_, err = c.Publish(context.Background(), tp, event.New(map[string]any{"Product__c": "ABC123"}))
	require.Error(t, err)
	assert.True(t, eventerr.IsPublish(err))
	assert.Empty(t, h.emu.PubSub.Published())
}

func TestPublish_PerEventErrorIsPublishError(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	tp, err := c.GetTopic(context.Background(), topic)
	require.NoError(t, err)

	stale := *tp
	stale.SchemaID = "stale-schema-id"
	_, err = c.Publish(context.Background(), &stale, event.New(map[string]any{"Product__c": "ABC123"}))
	require.Error(t, err)
	assert.True(t, eventerr.IsPublish(err))
	assert.Contains(t, err.Error(), "PUBLISH")
}

func TestPublish_RejectedWithoutPermission(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	_, err := h.emu.Registry.RegisterTopic("ReadOnly__e", emulator.ProductConfigurationSchema, false)
	require.NoError(t, err)
	tp, err := c.GetTopic(context.Background(), "/event/ReadOnly__e")
	require.NoError(t, err)
	assert.False(t, tp.CanPublish)

	_, err = c.Publish(context.Background(), tp, event.New(nil))
	require.Error(t, err)
	assert.True(t, eventerr.IsPublish(err))
	assert.Equal(t, 0, h.emu.PubSub.Calls(pubsubapi.PublishMethod))
}

func TestConnect_MetadataRejectedForWrongTenant(t *testing.T) {
	h := newHarness(t)
	h.opts.TenantID = "00Dother"
	c := h.connect(t)

	_, err := c.GetTopic(context.Background(), topic)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(errors.Unwrap(err)))
}

func TestConnect_AuthFailureOpensNoChannel(t *testing.T) {
	h := newHarness(t)
	bad := auth.NewPasswordProvider(auth.Credentials{ClientID: "client-id", ClientSecret: "client-secret",
		Username: "integration@example.com", Password: "wrong"}, "http://127.0.0.1:1/services/oauth2/token", nil, zerolog.Nop())

	c, err := pubsub.Connect(context.Background(), h.opts, bad, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, eventerr.IsAuthentication(err))
}

func TestStream_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.opts.Timeout = 10 * time.Second

	res, err := pubsub.Stream(context.Background(), h.opts, h.auth, topic, map[string]any{"Product__c": "ABC123"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, res.EventID)

	published := h.emu.PubSub.Published()
	require.Len(t, published, 1)
	assert.Equal(t, res.EventID, published[0].ID)
	assert.Equal(t, 1, h.emu.Tokens.Issued())
}

func TestStream_SecondRunAuthenticatesAgain(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 2; i++ {
		_, err := pubsub.Stream(context.Background(), h.opts, h.auth, topic, map[string]any{"Product__c": "ABC123"}, zerolog.Nop())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, h.emu.Tokens.Issued())
	assert.Len(t, h.emu.PubSub.Published(), 2)
}
