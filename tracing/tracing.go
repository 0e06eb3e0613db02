// Package tracing provides the optional, env-driven tracing hooks around
// Bot.Respond, the inner turn loop, and tool execution. Grounded directly
// on pkg/observability/tracer.go's InitGlobalTracer (noop provider when
// disabled, OTLP gRPC exporter when enabled).
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures the process-wide tracer.
type Config struct {
	Enabled      bool
	EndpointURL  string
	SamplingRate float64
	ServiceName  string
}

// Init sets the global TracerProvider per cfg, honoring the env-driven
// kill switch: OTEL_SDK_DISABLED=true always disables tracing regardless
// of cfg.Enabled; otherwise, if cfg.Enabled was left at its zero value,
// BOTS_ENABLE_TRACING supplies the default.
func Init(ctx context.Context, cfg Config) (trace.TracerProvider, error) {
	if sdkDisabled() {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	enabled := cfg.Enabled || envEnableDefault()
	if !enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bots"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: create resource: %w", err)
	}

	sampling := cfg.SamplingRate
	if sampling <= 0 {
		sampling = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampling)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns a named tracer off the current global provider. Safe to
// call before Init: otel.Tracer falls back to a noop implementation until
// a real provider is set.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func sdkDisabled() bool {
	v, ok := os.LookupEnv("OTEL_SDK_DISABLED")
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func envEnableDefault() bool {
	v, ok := os.LookupEnv("BOTS_ENABLE_TRACING")
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
