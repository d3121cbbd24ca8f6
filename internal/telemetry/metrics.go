package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "platform-event-publisher"

// Metrics counts publish outcomes per transport.
type Metrics struct {
	published metric.Int64Counter
	failed    metric.Int64Counter
}

// NewMetrics registers the publish counters on provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	published, err := meter.Int64Counter("publisher.events.published",
		metric.WithDescription("Platform events accepted by the platform"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("publisher.events.failed",
		metric.WithDescription("Publish attempts that ended in an error"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	return &Metrics{published: published, failed: failed}, nil
}

// RecordPublished counts one accepted event. Nil-safe.
func (m *Metrics) RecordPublished(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	m.published.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}

// RecordFailed counts one failed attempt with the error kind.
func (m *Metrics) RecordFailed(ctx context.Context, transport, kind string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("error_kind", kind),
	))
}
