package pubsubapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// PubSubServer is the server API for the unary eventbus.v1.PubSub methods.
type PubSubServer interface {
	GetTopic(context.Context, *TopicRequest) (*TopicInfo, error)
	GetSchema(context.Context, *SchemaRequest) (*SchemaInfo, error)
	Publish(context.Context, *PublishRequest) (*PublishResponse, error)
}

// UnimplementedPubSubServer returns Unimplemented for every method. Embed it to implement a subset.
type UnimplementedPubSubServer struct{}

func (UnimplementedPubSubServer) GetTopic(context.Context, *TopicRequest) (*TopicInfo, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTopic not implemented")
}

func (UnimplementedPubSubServer) GetSchema(context.Context, *SchemaRequest) (*SchemaInfo, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSchema not implemented")
}

func (UnimplementedPubSubServer) Publish(context.Context, *PublishRequest) (*PublishResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Publish not implemented")
}

// RegisterPubSubServer registers srv as the eventbus.v1.PubSub implementation on s.
func RegisterPubSubServer(s grpc.ServiceRegistrar, srv PubSubServer) {
	s.RegisterService(&pubSubServiceDesc, srv)
}

var pubSubServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PubSubServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetTopic",
			Handler: unaryHandler(GetTopicMethod, topicRequestDesc, topicRequestFromMessage,
				PubSubServer.GetTopic, (*TopicInfo).toMessage),
		},
		{
			MethodName: "GetSchema",
			Handler: unaryHandler(GetSchemaMethod, schemaRequestDesc, schemaRequestFromMessage,
				PubSubServer.GetSchema, (*SchemaInfo).toMessage),
		},
		{
			MethodName: "Publish",
			Handler: unaryHandler(PublishMethod, publishRequestDesc, publishRequestFromMessage,
				PubSubServer.Publish, (*PublishResponse).toMessage),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// unaryHandler adapts a typed PubSubServer method to a grpc.MethodHandler decoding into dynamic messages.
func unaryHandler[Req, Resp any](
	fullMethod string,
	in protoreflect.MessageDescriptor,
	decode func(protoreflect.Message) *Req,
	call func(PubSubServer, context.Context, *Req) (*Resp, error),
	encode func(*Resp) *dynamicpb.Message,
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		msg := dynamicpb.NewMessage(in)
		if err := dec(msg); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := call(srv.(PubSubServer), ctx, decode(req.(*dynamicpb.Message)))
			if err != nil {
				return nil, err
			}
			if resp == nil {
				return nil, status.Errorf(codes.Internal, "%s returned nil response", fullMethod)
			}
			return encode(resp), nil
		}
		if interceptor == nil {
			return handler(ctx, msg)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, msg, info, handler)
	}
}
