// Package otel builds the tracer, meter and logger providers that export publish telemetry over
// OTLP, and the OTel Logs receipt emitter.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
	Shutdown       func(context.Context) error
}

// Settings selects the OTLP collector and the resource every span, metric and receipt log carries.
type Settings struct {
	// Endpoint is the OTLP gRPC collector; empty disables export.
	Endpoint string
	// Insecure forces plaintext even for https endpoints.
	Insecure    bool
	ServiceName string
	// Transport names the publisher subcommand of this run, e.g. "grpc" or "rest". Empty for the emulator.
	Transport string
	// Topic and LoginHost describe the org and event the process publishes to.
	Topic     string
	LoginHost string
}

// Resource attribute keys for the publish context.
const (
	AttrTransport = attribute.Key("platform_event.transport")
	AttrTopic     = attribute.Key("platform_event.topic")
	AttrLoginHost = attribute.Key("salesforce.login_host")
)

// NewProviders builds the three providers over one resource. Without an endpoint the providers
// still carry the resource but export nothing and Shutdown is a no-op.
func NewProviders(ctx context.Context, s Settings, logger zerolog.Logger) (*Providers, error) {
	res, err := newResource(s)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithResource(res)),
			MeterProvider:  metric.NewMeterProvider(metric.WithResource(res)),
			LoggerProvider: sdklog.NewLoggerProvider(sdklog.WithResource(res)),
			Resource:       res,
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	target, insecure, err := otlpTarget(endpoint, s.Insecure)
	if err != nil {
		return nil, err
	}
	exp, err := newExporters(ctx, target, insecure)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp.trace), sdktrace.WithResource(res))
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp.metric, metric.WithInterval(10*time.Second))),
	)
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)), sdklog.WithResource(res))
	logger.Debug().Str("target", target).Bool("insecure", insecure).Str("transport", s.Transport).Msg("otlp export enabled")

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Resource:       res,
		Shutdown: func(ctx context.Context) error {
			// Logs first so receipt records flush before the trace batcher stops.
			var errs []error
			for _, fn := range []func(context.Context) error{lp.Shutdown, mp.Shutdown, tp.Shutdown} {
				if err := fn(ctx); err != nil {
					logger.Warn().Err(err).Msg("telemetry shutdown")
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

func newResource(s Settings) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(s.ServiceName)}
	for k, v := range map[attribute.Key]string{AttrTransport: s.Transport, AttrTopic: s.Topic, AttrLoginHost: s.LoginHost} {
		if v != "" {
			attrs = append(attrs, k.String(v))
		}
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

type exporters struct {
	trace  *otlptrace.Exporter
	metric *otlpmetricgrpc.Exporter
	log    *otlploggrpc.Exporter
}

// newExporters dials nothing; the gRPC exporters connect lazily on first export.
func newExporters(ctx context.Context, target string, insecure bool) (*exporters, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}
	t, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	m, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	l, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		_ = t.Shutdown(ctx)
		_ = m.Shutdown(ctx)
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return &exporters{trace: t, metric: m, log: l}, nil
}

// SetGlobal sets the global TracerProvider and MeterProvider so otelgrpc and otelhttp use them.
// It does not set a global LoggerProvider; pass LoggerProvider to NewReceiptEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}

// otlpTarget reduces endpoint to the host:port the OTLP gRPC exporters dial. endpoint may be a URL
// with a path (e.g. https://collector:4317/v1/traces); the path is dropped. https endpoints use TLS
// unless insecureOverride is set (OTEL_EXPORTER_OTLP_INSECURE).
func otlpTarget(endpoint string, insecureOverride bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, insecureOverride || u.Scheme != "https", nil
}
