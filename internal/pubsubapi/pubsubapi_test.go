package pubsubapi

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type recordingServer struct {
	UnimplementedPubSubServer
	lastPublish *PublishRequest
}

func (s *recordingServer) GetTopic(_ context.Context, in *TopicRequest) (*TopicInfo, error) {
	return &TopicInfo{
		TopicName:  in.TopicName,
		TenantGUID: "00Dxx0000000001",
		CanPublish: true,
		SchemaID:   "schema-" + in.TopicName,
		RPCID:      "rpc-1",
	}, nil
}

func (s *recordingServer) Publish(_ context.Context, in *PublishRequest) (*PublishResponse, error) {
	s.lastPublish = in
	resp := &PublishResponse{SchemaID: in.Events[0].SchemaID, RPCID: "rpc-2"}
	for i, ev := range in.Events {
		res := PublishResult{CorrelationKey: ev.ID}
		if i == 0 {
			res.ReplayID = []byte{0x01, 0x02}
		} else {
			res.Error = &Error{Code: ErrorCodePublish, Msg: "rejected"}
		}
		resp.Results = append(resp.Results, res)
	}
	return resp, nil
}

func dialBufconn(t *testing.T, srv PubSubServer) PubSubClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterPubSubServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewPubSubClient(conn)
}

func TestFileDescriptor_DescribesService(t *testing.T) {
	fd := fileDescriptor
	require.NotNil(t, fd)
	assert.Equal(t, "eventbus.v1", string(fd.Package()))
	svc := fd.Services().ByName("PubSub")
	require.NotNil(t, svc)
	for _, m := range []string{"GetTopic", "GetSchema", "Publish"} {
		assert.NotNil(t, svc.Methods().ByName(protoreflect.Name(m)), "method %s", m)
	}
}

func TestClient_GetTopic(t *testing.T) {
	client := dialBufconn(t, &recordingServer{})
	info, err := client.GetTopic(context.Background(), &TopicRequest{TopicName: "/event/Order__e"})
	require.NoError(t, err)
	assert.Equal(t, "/event/Order__e", info.TopicName)
	assert.Equal(t, "schema-/event/Order__e", info.SchemaID)
	assert.True(t, info.CanPublish)
	assert.False(t, info.CanSubscribe)
}

func TestClient_UnimplementedMethod(t *testing.T) {
	client := dialBufconn(t, &recordingServer{})
	_, err := client.GetSchema(context.Background(), &SchemaRequest{SchemaID: "x"})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestClient_PublishCarriesEventsAndResults(t *testing.T) {
	srv := &recordingServer{}
	client := dialBufconn(t, srv)

	req := &PublishRequest{
		TopicName: "/event/Order__e",
		Events: []ProducerEvent{
			{ID: "ev-1", SchemaID: "s1", Payload: []byte{0x02, 0x0a}, Headers: []EventHeader{{Key: "k", Value: []byte("v")}}},
			{ID: "ev-2", SchemaID: "s1", Payload: []byte{0x00}},
		},
	}
	resp, err := client.Publish(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, srv.lastPublish)
	assert.Equal(t, req.TopicName, srv.lastPublish.TopicName)
	require.Len(t, srv.lastPublish.Events, 2)
	assert.Equal(t, req.Events[0].Payload, srv.lastPublish.Events[0].Payload)
	assert.Equal(t, req.Events[0].Headers, srv.lastPublish.Events[0].Headers)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "ev-1", resp.Results[0].CorrelationKey)
	assert.Equal(t, []byte{0x01, 0x02}, resp.Results[0].ReplayID)
	assert.Nil(t, resp.Results[0].Error)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, ErrorCodePublish, resp.Results[1].Error.Code)
	assert.Equal(t, "rejected", resp.Results[1].Error.Msg)
	assert.Equal(t, "s1", resp.SchemaID)
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "UNKNOWN", ErrorCodeUnknown.String())
	assert.Equal(t, "PUBLISH", ErrorCodePublish.String())
	assert.Equal(t, "COMMIT", ErrorCodeCommit.String())
	assert.Equal(t, "UNKNOWN", ErrorCode(42).String())
}
