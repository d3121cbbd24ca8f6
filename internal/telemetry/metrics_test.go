package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string][]metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string][]metricdata.DataPoint[int64]{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			out[m.Name] = sum.DataPoints
		}
	}
	return out
}

func TestMetrics_RecordsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPublished(ctx, "rest")
	m.RecordPublished(ctx, "rest")
	m.RecordFailed(ctx, "grpc", "schema_resolution")

	sums := collectSums(t, reader)
	published := sums["publisher.events.published"]
	require.Len(t, published, 1)
	assert.Equal(t, int64(2), published[0].Value)
	v, ok := published[0].Attributes.Value(attribute.Key("transport"))
	require.True(t, ok)
	assert.Equal(t, "rest", v.AsString())

	failed := sums["publisher.events.failed"]
	require.Len(t, failed, 1)
	assert.Equal(t, int64(1), failed[0].Value)
	kind, ok := failed[0].Attributes.Value(attribute.Key("error_kind"))
	require.True(t, ok)
	assert.Equal(t, "schema_resolution", kind.AsString())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordPublished(context.Background(), "rest")
	m.RecordFailed(context.Background(), "rest", "publish")
}
