// Package telemetry wires OpenTelemetry tracing for finpilot. Tracing is off
// by default. When enabled without an endpoint, spans are sampled but never
// exported.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects how spans are sampled and where they go.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	Endpoint       string  // OTLP/HTTP collector, host:port
	SampleRate     float64 // 0..1, applied to root spans
}

// DefaultConfig has tracing disabled.
func DefaultConfig() Config {
	return Config{ServiceName: "finpilot", ServiceVersion: "dev", SampleRate: 1.0}
}

var state struct {
	sync.RWMutex
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// InitProvider installs the process tracer provider for cfg and returns its
// shutdown func, which flushes pending spans.
func InitProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var (
		tp       trace.TracerProvider = noop.NewTracerProvider()
		shutdown                      = func(context.Context) error { return nil }
	)

	if cfg.Enabled {
		sdk, err := newSDKProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tp, shutdown = sdk, sdk.Shutdown
	}

	state.Lock()
	state.provider, state.shutdown = tp, shutdown
	state.Unlock()
	otel.SetTracerProvider(tp)
	return shutdown, nil
}

func newSDKProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))
	}
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res), sdktrace.WithSampler(sampler)}

	if cfg.Endpoint != "" {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		// Commands are short lived, so flush often.
		opts = append(opts, sdktrace.WithBatcher(newRetryableExporter(exp), sdktrace.WithBatchTimeout(2*time.Second)))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

func createResource(cfg Config) (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithOS(),
		resource.WithTelemetrySDK(),
	)
}

// Shutdown flushes the provider installed by InitProvider, if any.
func Shutdown(ctx context.Context) error {
	state.RLock()
	fn := state.shutdown
	state.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func tracer(name string) trace.Tracer {
	state.RLock()
	tp := state.provider
	state.RUnlock()
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return tp.Tracer(name)
}

func setTracerProvider(tp trace.TracerProvider) {
	state.Lock()
	state.provider = tp
	state.Unlock()
}

// retryableExporter retries a failed batch with exponential backoff until
// maxTries or maxWait runs out.
type retryableExporter struct {
	sdktrace.SpanExporter
	maxTries uint
	maxWait  time.Duration
}

func newRetryableExporter(exp sdktrace.SpanExporter) *retryableExporter {
	return &retryableExporter{SpanExporter: exp, maxTries: 5, maxWait: 10 * time.Second}
}

func (r *retryableExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.Multiplier = 1.5

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.SpanExporter.ExportSpans(ctx, spans)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxTries), backoff.WithMaxElapsedTime(r.maxWait))
	if err != nil {
		return fmt.Errorf("export spans: %w", err)
	}
	return nil
}
