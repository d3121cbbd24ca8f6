package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"platform-event-publisher/internal/telemetry"
	"platform-event-publisher/internal/telemetry/domain"
)

const scopeName = "platform-event-publisher.receipts"

// RecordLogger is the subset of otellog.Logger the emitter needs.
type RecordLogger interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewReceiptEmitter returns an Emitter that sends receipts as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewReceiptEmitter(provider *sdklog.LoggerProvider) telemetry.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(scopeName)}
}

// NewReceiptEmitterWithLogger wraps a bare record logger.
func NewReceiptEmitterWithLogger(logger RecordLogger) telemetry.Emitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Receipt) error { return nil }

type otelEmitter struct {
	logger RecordLogger
}

// Emit converts the receipt to an OTel log record. Empty fields are left out.
func (e *otelEmitter) Emit(ctx context.Context, r *domain.Receipt) error {
	if r == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(r.PublishedAt)
	if r.PublishedAt.IsZero() {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("platform event published"))

	for _, kv := range []struct{ key, value string }{
		{"event_id", r.EventID},
		{"transport", r.Transport},
		{"topic", r.Topic},
		{"schema_id", r.SchemaID},
		{"record_id", r.RecordID},
		{"replay_id", r.ReplayID},
		{"instance_url", r.InstanceURL},
	} {
		if kv.value != "" {
			rec.AddAttributes(otellog.String(kv.key, kv.value))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}
