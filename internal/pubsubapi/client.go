package pubsubapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// PubSubClient is the client API for the unary eventbus.v1.PubSub methods.
type PubSubClient interface {
	GetTopic(ctx context.Context, in *TopicRequest, opts ...grpc.CallOption) (*TopicInfo, error)
	GetSchema(ctx context.Context, in *SchemaRequest, opts ...grpc.CallOption) (*SchemaInfo, error)
	Publish(ctx context.Context, in *PublishRequest, opts ...grpc.CallOption) (*PublishResponse, error)
}

type pubSubClient struct {
	cc grpc.ClientConnInterface
}

// NewPubSubClient returns a PubSubClient that invokes methods over cc.
func NewPubSubClient(cc grpc.ClientConnInterface) PubSubClient {
	return &pubSubClient{cc: cc}
}

func (c *pubSubClient) GetTopic(ctx context.Context, in *TopicRequest, opts ...grpc.CallOption) (*TopicInfo, error) {
	out := dynamicpb.NewMessage(topicInfoDesc)
	if err := c.cc.Invoke(ctx, GetTopicMethod, in.toMessage(), out, opts...); err != nil {
		return nil, err
	}
	return topicInfoFromMessage(out), nil
}

func (c *pubSubClient) GetSchema(ctx context.Context, in *SchemaRequest, opts ...grpc.CallOption) (*SchemaInfo, error) {
	out := dynamicpb.NewMessage(schemaInfoDesc)
	if err := c.cc.Invoke(ctx, GetSchemaMethod, in.toMessage(), out, opts...); err != nil {
		return nil, err
	}
	return schemaInfoFromMessage(out), nil
}

func (c *pubSubClient) Publish(ctx context.Context, in *PublishRequest, opts ...grpc.CallOption) (*PublishResponse, error) {
	out := dynamicpb.NewMessage(publishResponseDesc)
	if err := c.cc.Invoke(ctx, PublishMethod, in.toMessage(), out, opts...); err != nil {
		return nil, err
	}
	return publishResponseFromMessage(out), nil
}
