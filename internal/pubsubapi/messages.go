package pubsubapi

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrorCode mirrors eventbus.v1.ErrorCode.
type ErrorCode int32

const (
	ErrorCodeUnknown ErrorCode = 0
	ErrorCodePublish ErrorCode = 1
	ErrorCodeCommit  ErrorCode = 2
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodePublish:
		return "PUBLISH"
	case ErrorCodeCommit:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// TopicRequest asks for the metadata of a topic by name (e.g. /event/Order_Placed__e).
type TopicRequest struct {
	TopicName string
}

// TopicInfo describes a topic and the schema its events are currently encoded with.
type TopicInfo struct {
	TopicName    string
	TenantGUID   string
	CanPublish   bool
	CanSubscribe bool
	SchemaID     string
	RPCID        string
}

// SchemaRequest asks for the Avro schema registered under SchemaID.
type SchemaRequest struct {
	SchemaID string
}

// SchemaInfo carries the Avro schema definition as JSON.
type SchemaInfo struct {
	SchemaJSON string
	SchemaID   string
	RPCID      string
}

// EventHeader is an optional key/value header attached to a produced event.
type EventHeader struct {
	Key   string
	Value []byte
}

// ProducerEvent is one Avro-encoded event in a publish batch.
type ProducerEvent struct {
	ID       string
	SchemaID string
	Payload  []byte
	Headers  []EventHeader
}

// PublishRequest publishes a batch of events to TopicName.
type PublishRequest struct {
	TopicName   string
	Events      []ProducerEvent
	AuthRefresh string
}

// Error is the per-event failure reported inside a PublishResult.
type Error struct {
	Code ErrorCode
	Msg  string
}

// PublishResult reports the outcome of one event; CorrelationKey equals the ProducerEvent ID.
type PublishResult struct {
	ReplayID       []byte
	Error          *Error
	CorrelationKey string
}

// PublishResponse holds one result per published event, in request order.
type PublishResponse struct {
	Results  []PublishResult
	SchemaID string
	RPCID    string
}

func field(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	return md.Fields().ByName(protoreflect.Name(name))
}

func setString(m protoreflect.Message, name, v string) {
	if v == "" {
		return
	}
	m.Set(field(m.Descriptor(), name), protoreflect.ValueOfString(v))
}

func setBytes(m protoreflect.Message, name string, v []byte) {
	if len(v) == 0 {
		return
	}
	m.Set(field(m.Descriptor(), name), protoreflect.ValueOfBytes(v))
}

func setBool(m protoreflect.Message, name string, v bool) {
	if !v {
		return
	}
	m.Set(field(m.Descriptor(), name), protoreflect.ValueOfBool(v))
}

func getString(m protoreflect.Message, name string) string {
	return m.Get(field(m.Descriptor(), name)).String()
}

func getBytes(m protoreflect.Message, name string) []byte {
	b := m.Get(field(m.Descriptor(), name)).Bytes()
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func getBool(m protoreflect.Message, name string) bool {
	return m.Get(field(m.Descriptor(), name)).Bool()
}

func (r *TopicRequest) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(topicRequestDesc)
	setString(m, "topic_name", r.TopicName)
	return m
}

func topicRequestFromMessage(m protoreflect.Message) *TopicRequest {
	return &TopicRequest{TopicName: getString(m, "topic_name")}
}

func (t *TopicInfo) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(topicInfoDesc)
	setString(m, "topic_name", t.TopicName)
	setString(m, "tenant_guid", t.TenantGUID)
	setBool(m, "can_publish", t.CanPublish)
	setBool(m, "can_subscribe", t.CanSubscribe)
	setString(m, "schema_id", t.SchemaID)
	setString(m, "rpc_id", t.RPCID)
	return m
}

func topicInfoFromMessage(m protoreflect.Message) *TopicInfo {
	return &TopicInfo{
		TopicName:    getString(m, "topic_name"),
		TenantGUID:   getString(m, "tenant_guid"),
		CanPublish:   getBool(m, "can_publish"),
		CanSubscribe: getBool(m, "can_subscribe"),
		SchemaID:     getString(m, "schema_id"),
		RPCID:        getString(m, "rpc_id"),
	}
}

func (r *SchemaRequest) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(schemaRequestDesc)
	setString(m, "schema_id", r.SchemaID)
	return m
}

func schemaRequestFromMessage(m protoreflect.Message) *SchemaRequest {
	return &SchemaRequest{SchemaID: getString(m, "schema_id")}
}

func (s *SchemaInfo) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(schemaInfoDesc)
	setString(m, "schema_json", s.SchemaJSON)
	setString(m, "schema_id", s.SchemaID)
	setString(m, "rpc_id", s.RPCID)
	return m
}

func schemaInfoFromMessage(m protoreflect.Message) *SchemaInfo {
	return &SchemaInfo{
		SchemaJSON: getString(m, "schema_json"),
		SchemaID:   getString(m, "schema_id"),
		RPCID:      getString(m, "rpc_id"),
	}
}

func (r *PublishRequest) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(publishRequestDesc)
	setString(m, "topic_name", r.TopicName)
	setString(m, "auth_refresh", r.AuthRefresh)
	if len(r.Events) > 0 {
		list := m.Mutable(field(publishRequestDesc, "events")).List()
		for _, ev := range r.Events {
			v := list.NewElement()
			fillProducerEvent(v.Message(), ev)
			list.Append(v)
		}
	}
	return m
}

func fillProducerEvent(m protoreflect.Message, ev ProducerEvent) {
	setString(m, "id", ev.ID)
	setString(m, "schema_id", ev.SchemaID)
	setBytes(m, "payload", ev.Payload)
	if len(ev.Headers) == 0 {
		return
	}
	list := m.Mutable(field(m.Descriptor(), "headers")).List()
	for _, h := range ev.Headers {
		v := list.NewElement()
		setString(v.Message(), "key", h.Key)
		setBytes(v.Message(), "value", h.Value)
		list.Append(v)
	}
}

func publishRequestFromMessage(m protoreflect.Message) *PublishRequest {
	req := &PublishRequest{
		TopicName:   getString(m, "topic_name"),
		AuthRefresh: getString(m, "auth_refresh"),
	}
	list := m.Get(field(m.Descriptor(), "events")).List()
	for i := 0; i < list.Len(); i++ {
		em := list.Get(i).Message()
		ev := ProducerEvent{
			ID:       getString(em, "id"),
			SchemaID: getString(em, "schema_id"),
			Payload:  getBytes(em, "payload"),
		}
		headers := em.Get(field(em.Descriptor(), "headers")).List()
		for j := 0; j < headers.Len(); j++ {
			hm := headers.Get(j).Message()
			ev.Headers = append(ev.Headers, EventHeader{Key: getString(hm, "key"), Value: getBytes(hm, "value")})
		}
		req.Events = append(req.Events, ev)
	}
	return req
}

func (r *PublishResponse) toMessage() *dynamicpb.Message {
	m := dynamicpb.NewMessage(publishResponseDesc)
	setString(m, "schema_id", r.SchemaID)
	setString(m, "rpc_id", r.RPCID)
	if len(r.Results) == 0 {
		return m
	}
	list := m.Mutable(field(publishResponseDesc, "results")).List()
	for _, res := range r.Results {
		v := list.NewElement()
		rm := v.Message()
		setBytes(rm, "replay_id", res.ReplayID)
		setString(rm, "correlation_key", res.CorrelationKey)
		if res.Error != nil {
			errMsg := rm.Mutable(field(rm.Descriptor(), "error")).Message()
			errMsg.Set(field(errMsg.Descriptor(), "code"), protoreflect.ValueOfEnum(protoreflect.EnumNumber(res.Error.Code)))
			setString(errMsg, "msg", res.Error.Msg)
		}
		list.Append(v)
	}
	return m
}

func publishResponseFromMessage(m protoreflect.Message) *PublishResponse {
	resp := &PublishResponse{
		SchemaID: getString(m, "schema_id"),
		RPCID:    getString(m, "rpc_id"),
	}
	list := m.Get(field(m.Descriptor(), "results")).List()
	for i := 0; i < list.Len(); i++ {
		rm := list.Get(i).Message()
		res := PublishResult{
			ReplayID:       getBytes(rm, "replay_id"),
			CorrelationKey: getString(rm, "correlation_key"),
		}
		errField := field(rm.Descriptor(), "error")
		if rm.Has(errField) {
			em := rm.Get(errField).Message()
			res.Error = &Error{
				Code: ErrorCode(em.Get(field(em.Descriptor(), "code")).Enum()),
				Msg:  getString(em, "msg"),
			}
		}
		resp.Results = append(resp.Results, res)
	}
	return resp
}
