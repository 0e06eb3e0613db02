package tracing

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestSDKDisabledWinsOverEnableDefault(t *testing.T) {
	os.Setenv("OTEL_SDK_DISABLED", "true")
	os.Setenv("BOTS_ENABLE_TRACING", "true")
	defer os.Unsetenv("OTEL_SDK_DISABLED")
	defer os.Unsetenv("BOTS_ENABLE_TRACING")

	if !sdkDisabled() {
		t.Fatal("sdkDisabled() = false, want true")
	}
	tp, err := Init(context.Background(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Fatalf("Init() provider = %T, want noop.TracerProvider", tp)
	}
}

func TestEnableDefaultFromEnv(t *testing.T) {
	os.Unsetenv("OTEL_SDK_DISABLED")
	os.Setenv("BOTS_ENABLE_TRACING", "true")
	defer os.Unsetenv("BOTS_ENABLE_TRACING")

	if !envEnableDefault() {
		t.Fatal("envEnableDefault() = false, want true")
	}
}

func TestTracerNeverNil(t *testing.T) {
	if Tracer("x") == nil {
		t.Fatal("Tracer() returned nil")
	}
}
