// Package pubsubapi describes the platform's eventbus.v1 Pub/Sub gRPC service (unary subset:
// GetTopic, GetSchema, Publish). Message descriptors are built in-process and instantiated
// with dynamicpb, so no generated code is needed to speak the wire protocol.
package pubsubapi

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "eventbus.v1.PubSub"

	GetTopicMethod  = "/eventbus.v1.PubSub/GetTopic"
	GetSchemaMethod = "/eventbus.v1.PubSub/GetSchema"
	PublishMethod   = "/eventbus.v1.PubSub/Publish"

	protoFile    = "pubsub_api.proto"
	protoPackage = "eventbus.v1"
)

var (
	fileDescriptor = mustBuildFile()

	topicRequestDesc    = fileDescriptor.Messages().ByName("TopicRequest")
	topicInfoDesc       = fileDescriptor.Messages().ByName("TopicInfo")
	schemaRequestDesc   = fileDescriptor.Messages().ByName("SchemaRequest")
	schemaInfoDesc      = fileDescriptor.Messages().ByName("SchemaInfo")
	publishRequestDesc  = fileDescriptor.Messages().ByName("PublishRequest")
	publishResponseDesc = fileDescriptor.Messages().ByName("PublishResponse")
)

func mustBuildFile() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(fileDescriptorProto(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("pubsubapi: build descriptor: %v", err))
	}
	return fd
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	byt := descriptorpb.FieldDescriptorProto_TYPE_BYTES
	boo := descriptorpb.FieldDescriptorProto_TYPE_BOOL
	msg := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	enm := descriptorpb.FieldDescriptorProto_TYPE_ENUM

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("ErrorCode"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("UNKNOWN"), Number: proto.Int32(0)},
				{Name: proto.String("PUBLISH"), Number: proto.Int32(1)},
				{Name: proto.String("COMMIT"), Number: proto.Int32(2)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			message("TopicInfo",
				scalar("topic_name", 1, str),
				scalar("tenant_guid", 2, str),
				scalar("can_publish", 3, boo),
				scalar("can_subscribe", 4, boo),
				scalar("schema_id", 5, str),
				scalar("rpc_id", 6, str),
			),
			message("TopicRequest", scalar("topic_name", 1, str)),
			message("EventHeader",
				scalar("key", 1, str),
				scalar("value", 2, byt),
			),
			message("ProducerEvent",
				scalar("id", 1, str),
				scalar("schema_id", 2, str),
				scalar("payload", 3, byt),
				repeated("headers", 4, msg, ".eventbus.v1.EventHeader"),
			),
			message("Error",
				typed("code", 1, enm, ".eventbus.v1.ErrorCode"),
				scalar("msg", 2, str),
			),
			message("PublishResult",
				scalar("replay_id", 1, byt),
				typed("error", 2, msg, ".eventbus.v1.Error"),
				scalar("correlation_key", 3, str),
			),
			message("SchemaRequest", scalar("schema_id", 1, str)),
			message("SchemaInfo",
				scalar("schema_json", 1, str),
				scalar("schema_id", 2, str),
				scalar("rpc_id", 3, str),
			),
			message("PublishRequest",
				scalar("topic_name", 1, str),
				repeated("events", 2, msg, ".eventbus.v1.ProducerEvent"),
				scalar("auth_refresh", 3, str),
			),
			message("PublishResponse",
				repeated("results", 1, msg, ".eventbus.v1.PublishResult"),
				scalar("schema_id", 2, str),
				scalar("rpc_id", 3, str),
			),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("PubSub"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("GetSchema", ".eventbus.v1.SchemaRequest", ".eventbus.v1.SchemaInfo"),
				method("GetTopic", ".eventbus.v1.TopicRequest", ".eventbus.v1.TopicInfo"),
				method("Publish", ".eventbus.v1.PublishRequest", ".eventbus.v1.PublishResponse"),
			},
		}},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func typed(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, typ)
	f.TypeName = proto.String(typeName)
	return f
}

func repeated(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := typed(name, number, typ, typeName)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func method(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(input),
		OutputType: proto.String(output),
	}
}
