package emulator

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"platform-event-publisher/internal/pubsub"
	"platform-event-publisher/internal/pubsubapi"
	"platform-event-publisher/internal/server/interceptors"
)

// PublishedEvent is an event accepted by the emulator, payload decoded with the topic schema.
type PublishedEvent struct {
	Topic    string
	ID       string
	SchemaID string
	ReplayID []byte
	Fields   map[string]any
}

// PubSubServer implements eventbus.v1.PubSub against a Registry.
type PubSubServer struct {
	pubsubapi.UnimplementedPubSubServer

	registry *Registry
	tenantID string
	logger   zerolog.Logger

	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]error
	published []PublishedEvent
	replay    uint64
}

// NewPubSubServer returns a server resolving topics in registry. tenantID is reported as the
// topics' tenant_guid.
func NewPubSubServer(registry *Registry, tenantID string, logger zerolog.Logger) *PubSubServer {
	return &PubSubServer{
		registry: registry,
		tenantID: tenantID,
		logger:   logger,
		calls:    map[string]int{},
		failures: map[string]error{},
	}
}

// RecordCall counts an RPC by full method name. Wired as the server's CallRecorder.
func (s *PubSubServer) RecordCall(fullMethod string, _ codes.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[fullMethod]++
}

// Calls returns how many times fullMethod (e.g. pubsubapi.GetSchemaMethod) was called.
func (s *PubSubServer) Calls(fullMethod string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[fullMethod]
}

// FailNext makes the next call to fullMethod return err (a gRPC status error).
func (s *PubSubServer) FailNext(fullMethod string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[fullMethod] = err
}

// Published returns the accepted events in order.
func (s *PubSubServer) Published() []PublishedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PublishedEvent(nil), s.published...)
}

func (s *PubSubServer) injected(fullMethod string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.failures[fullMethod]
	if ok {
		delete(s.failures, fullMethod)
	}
	return err
}

func (s *PubSubServer) GetTopic(ctx context.Context, in *pubsubapi.TopicRequest) (*pubsubapi.TopicInfo, error) {
	if err := s.injected(pubsubapi.GetTopicMethod); err != nil {
		return nil, err
	}
	t, ok := s.registry.topic(in.TopicName)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "topic %s not found", in.TopicName)
	}
	tenant := s.tenantID
	if sess, ok := interceptors.SessionFrom(ctx); ok {
		tenant = sess.TenantID
	}
	return &pubsubapi.TopicInfo{
		TopicName:    t.name,
		TenantGUID:   tenant,
		CanPublish:   t.canPublish,
		CanSubscribe: true,
		SchemaID:     t.schemaID,
		RPCID:        uuid.NewString(),
	}, nil
}

func (s *PubSubServer) GetSchema(_ context.Context, in *pubsubapi.SchemaRequest) (*pubsubapi.SchemaInfo, error) {
	if err := s.injected(pubsubapi.GetSchemaMethod); err != nil {
		return nil, err
	}
	sc, ok := s.registry.schema(in.SchemaID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "schema %s not found", in.SchemaID)
	}
	return &pubsubapi.SchemaInfo{SchemaJSON: sc.json, SchemaID: in.SchemaID, RPCID: uuid.NewString()}, nil
}

// Publish validates each event against the topic schema. A malformed event gets a per-event
// PUBLISH error in its result; the RPC itself succeeds.
func (s *PubSubServer) Publish(_ context.Context, in *pubsubapi.PublishRequest) (*pubsubapi.PublishResponse, error) {
	if err := s.injected(pubsubapi.PublishMethod); err != nil {
		return nil, err
	}
	t, ok := s.registry.topic(in.TopicName)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "topic %s not found", in.TopicName)
	}
	if !t.canPublish {
		return nil, status.Errorf(codes.PermissionDenied, "publish not allowed on %s", in.TopicName)
	}
	if len(in.Events) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no events")
	}

	resp := &pubsubapi.PublishResponse{SchemaID: t.schemaID, RPCID: uuid.NewString()}
	for _, ev := range in.Events {
		resp.Results = append(resp.Results, s.accept(in.TopicName, t, ev))
	}
	return resp, nil
}

func (s *PubSubServer) accept(topic string, t topicEntry, ev pubsubapi.ProducerEvent) pubsubapi.PublishResult {
	res := pubsubapi.PublishResult{CorrelationKey: ev.ID}
	reject := func(msg string) pubsubapi.PublishResult {
		res.Error = &pubsubapi.Error{Code: pubsubapi.ErrorCodePublish, Msg: msg}
		return res
	}
	if ev.ID == "" {
		return reject("event id is required")
	}
	if ev.SchemaID != t.schemaID {
		return reject("schema id " + ev.SchemaID + " does not match topic schema " + t.schemaID)
	}
	sc, ok := s.registry.schema(ev.SchemaID)
	if !ok {
		return reject("unknown schema id " + ev.SchemaID)
	}
	fields, err := pubsub.Decode(sc.schema, ev.Payload)
	if err != nil {
		return reject("payload does not match schema: " + err.Error())
	}

	s.mu.Lock()
	s.replay++
	replay := make([]byte, 8)
	binary.BigEndian.PutUint64(replay, s.replay)
	s.published = append(s.published, PublishedEvent{
		Topic:    topic,
		ID:       ev.ID,
		SchemaID: ev.SchemaID,
		ReplayID: replay,
		Fields:   fields,
	})
	s.mu.Unlock()

	s.logger.Info().Str("topic", topic).Str("event_id", ev.ID).Msg("event accepted")
	res.ReplayID = replay
	return res
}
