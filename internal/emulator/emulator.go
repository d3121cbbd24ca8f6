// Package emulator is an in-process stand-in for the platform: an OAuth2 token endpoint, the
// sObject REST endpoint, and the eventbus.v1 Pub/Sub gRPC service, sharing one topic registry
// and token store. Used by cmd/emulator for local runs and by the test suites.
package emulator

import (
	"time"

	"github.com/hamba/avro/v2"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"platform-event-publisher/internal/server"
)

// ProductConfigurationSchema is the Avro schema of the default topic, as the platform
// generates it for a platform event with one text field.
const ProductConfigurationSchema = `{
  "type": "record",
  "name": "Product_Configuration__e",
  "namespace": "com.sforce.eventbus",
  "fields": [
    {"name": "CreatedDate", "type": "long", "doc": "CreatedDate:DateTime"},
    {"name": "CreatedById", "type": "string", "doc": "CreatedBy:EntityId"},
    {"name": "Product__c", "type": ["null", "string"], "doc": "Data:Text:00N", "default": null}
  ]
}`

// DefaultTopic is registered when no schema directory is given.
const DefaultTopic = "Product_Configuration__e"

// Options configure an Emulator.
type Options struct {
	Identity Identity
	// InstanceURL is returned by the token endpoint; empty derives it from the request host.
	InstanceURL string
	TokenTTL    time.Duration
	// SchemaDir holds <Topic>.avsc files. Empty registers DefaultTopic only.
	SchemaDir string
}

// Emulator bundles the emulated platform surfaces.
type Emulator struct {
	Registry *Registry
	Tokens   *TokenStore
	PubSub   *PubSubServer
	HTTP     *HTTPHandler
	Health   *health.Server

	tenantID string
	logger   zerolog.Logger
}

// New builds an emulator and loads its topics.
func New(opts Options, logger zerolog.Logger) (*Emulator, error) {
	reg := NewRegistry()
	if opts.SchemaDir != "" {
		names, err := reg.LoadSchemaDir(opts.SchemaDir)
		if err != nil {
			return nil, err
		}
		logger.Info().Strs("topics", names).Msg("schemas loaded")
	} else if _, err := reg.RegisterTopic(DefaultTopic, ProductConfigurationSchema, true); err != nil {
		return nil, err
	}
	tokens, err := NewTokenStore(opts.TokenTTL, opts.Identity.TenantID)
	if err != nil {
		return nil, err
	}
	return &Emulator{
		Registry: reg,
		Tokens:   tokens,
		PubSub:   NewPubSubServer(reg, opts.Identity.TenantID, logger),
		HTTP:     NewHTTPHandler(opts.Identity, tokens, reg, opts.InstanceURL, logger),
		Health:   health.NewServer(),
		tenantID: opts.Identity.TenantID,
		logger:   logger,
	}, nil
}

// GRPCServer returns a gRPC server exposing the Pub/Sub and health services behind the
// session metadata check.
func (e *Emulator) GRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	return server.NewGRPCServer(server.Deps{
		PubSub:   e.PubSub,
		Health:   e.Health,
		Tokens:   e.Tokens,
		TenantID: e.tenantID,
		Recorder: e.PubSub,
		Logger:   e.logger,
	}, opts...)
}

func fieldNames(schema avro.Schema) []string {
	rec, ok := schema.(*avro.RecordSchema)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		names = append(names, f.Name())
	}
	return names
}
