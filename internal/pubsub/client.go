// Package pubsub publishes platform events through the Pub/Sub gRPC API: it opens an
// authenticated channel, resolves a topic's Avro schema, and publishes Avro-encoded events.
package pubsub

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/event"
	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/pubsubapi"
	"platform-event-publisher/internal/security"
)

const (
	opGetTopic    = "get topic"
	opGetSchema   = "get schema"
	opParseSchema = "parse schema"
	opPublish     = "publish"
)

// Options configure the gRPC channel.
type Options struct {
	// Endpoint is the gRPC target, e.g. "api.pubsub.salesforce.com:443".
	Endpoint string
	// TenantID is sent as tenantid metadata.
	TenantID string
	// CAFile is a PEM root bundle; empty uses the system roots.
	CAFile string
	// Insecure uses a plaintext channel. Local emulator only.
	Insecure bool
	// CreatedByID is written to CreatedById on every published event.
	CreatedByID string
	// Timeout bounds a whole Stream call. Zero means no deadline.
	Timeout time.Duration
	// DialOptions are appended after the defaults (tests use a bufconn dialer).
	DialOptions []grpc.DialOption
}

// OptionsFromConfig maps config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:    cfg.PubSubEndpoint,
		TenantID:    cfg.TenantID,
		CAFile:      cfg.PubSubCAFile,
		Insecure:    cfg.PubSubInsecure,
		CreatedByID: cfg.CreatedByID,
		Timeout:     cfg.RPCTimeoutDuration(),
	}
}

// Topic is a resolved topic: its schema id, parsed schema, and publish permission.
type Topic struct {
	Name       string
	SchemaID   string
	Schema     avro.Schema
	SchemaJSON string
	CanPublish bool
}

// PublishResult describes one accepted event.
type PublishResult struct {
	EventID     string
	Topic       string
	ReplayID    []byte
	SchemaID    string
	RPCID       string
	InstanceURL string
}

// Client is an authenticated channel to the Pub/Sub API. Close releases it.
type Client struct {
	conn        *grpc.ClientConn
	api         pubsubapi.PubSubClient
	instanceURL string
	createdByID string
	logger      zerolog.Logger
}

// Connect authenticates once and opens a channel whose every call carries the resulting
// session as metadata.
func Connect(ctx context.Context, opts Options, authenticator auth.Authenticator, logger zerolog.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("pubsub: endpoint is empty")
	}
	creds, err := authenticator.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	transport, err := transportCredentials(opts)
	if err != nil {
		return nil, err
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(transport),
		grpc.WithPerRPCCredentials(tokenCredentials{
			accessToken: creds.AccessToken,
			instanceURL: creds.InstanceURL,
			tenantID:    opts.TenantID,
			secure:      !opts.Insecure,
		}),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	conn, err := grpc.NewClient(opts.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: create channel: %w", err)
	}
	return &Client{
		conn:        conn,
		api:         pubsubapi.NewPubSubClient(conn),
		instanceURL: creds.InstanceURL,
		createdByID: opts.CreatedByID,
		logger:      logger,
	}, nil
}

func transportCredentials(opts Options) (credentials.TransportCredentials, error) {
	if opts.Insecure {
		return insecure.NewCredentials(), nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if opts.CAFile != "" {
		pool, err := security.LoadCertPool(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		tlsCfg.RootCAs = pool
	}
	return credentials.NewTLS(tlsCfg), nil
}

// Close releases the channel. Safe on a nil Client.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// InstanceURL is the org host the channel authenticated against.
func (c *Client) InstanceURL() string { return c.instanceURL }

// GetTopic resolves topicName to its schema. The schema is fetched only after the topic lookup
// succeeds; any failure is a schema resolution error wrapping the gRPC status. Nothing is cached.
func (c *Client) GetTopic(ctx context.Context, topicName string) (*Topic, error) {
	info, err := c.api.GetTopic(ctx, &pubsubapi.TopicRequest{TopicName: topicName})
	if err != nil {
		return nil, eventerr.SchemaResolution(opGetTopic, err)
	}
	if info.SchemaID == "" {
		return nil, eventerr.SchemaResolution(opGetTopic, fmt.Errorf("topic %q has no schema id", topicName))
	}

	schemaInfo, err := c.api.GetSchema(ctx, &pubsubapi.SchemaRequest{SchemaID: info.SchemaID})
	if err != nil {
		return nil, eventerr.SchemaResolution(opGetSchema, err)
	}
	schema, err := ParseSchema(schemaInfo.SchemaJSON)
	if err != nil {
		return nil, eventerr.SchemaResolution(opParseSchema, err)
	}

	c.logger.Debug().Str("topic", topicName).Str("schema_id", info.SchemaID).Bool("can_publish", info.CanPublish).Msg("topic resolved")
	return &Topic{
		Name:       topicName,
		SchemaID:   info.SchemaID,
		Schema:     schema,
		SchemaJSON: schemaInfo.SchemaJSON,
		CanPublish: info.CanPublish,
	}, nil
}

// Publish encodes ev with the topic schema and sends it as a single-event batch. An RPC failure
// or a per-event error in the response is a publish error.
func (c *Client) Publish(ctx context.Context, topic *Topic, ev *event.Event) (*PublishResult, error) {
	if !topic.CanPublish {
		return nil, eventerr.Publish(opPublish, 0, "", fmt.Errorf("topic %q does not allow publishing", topic.Name))
	}
	payload, err := Encode(topic.Schema, ev.WithPlatformFields(c.createdByID))
	if err != nil {
		return nil, eventerr.Publish(opPublish, 0, "", err)
	}

	resp, err := c.api.Publish(ctx, &pubsubapi.PublishRequest{
		TopicName: topic.Name,
		Events: []pubsubapi.ProducerEvent{{
			ID:       ev.ID,
			SchemaID: topic.SchemaID,
			Payload:  payload,
		}},
	})
	if err != nil {
		return nil, eventerr.Publish(opPublish, 0, "", err)
	}
	c.logger.Info().
		Str("topic", topic.Name).
		Str("schema_id", resp.SchemaID).
		Str("rpc_id", resp.RPCID).
		Interface("results", resp.Results).
		Msg("publish response")

	if len(resp.Results) == 0 {
		return nil, eventerr.Publish(opPublish, 0, "", errors.New("empty publish response"))
	}
	r := resp.Results[0]
	if r.Error != nil {
		return nil, eventerr.Publish(opPublish, 0, "", fmt.Errorf("%s: %s", r.Error.Code, r.Error.Msg))
	}
	return &PublishResult{
		EventID:     ev.ID,
		Topic:       topic.Name,
		ReplayID:    r.ReplayID,
		SchemaID:    resp.SchemaID,
		RPCID:       resp.RPCID,
		InstanceURL: c.instanceURL,
	}, nil
}

// Stream runs one publish end to end: connect, resolve topicName, publish fields as a new event.
// The channel is closed on every exit path. opts.Timeout, when set, bounds the whole call.
func Stream(ctx context.Context, opts Options, authenticator auth.Authenticator, topicName string, fields map[string]any, logger zerolog.Logger) (*PublishResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	client, err := Connect(ctx, opts, authenticator, logger)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	topic, err := client.GetTopic(ctx, topicName)
	if err != nil {
		return nil, err
	}
	return client.Publish(ctx, topic, event.New(fields))
}
