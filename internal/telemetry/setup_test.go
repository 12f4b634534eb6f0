package telemetry

import (
	"context"
	"testing"

	"voice-platform/internal/config"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, "voice-platform", "test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampleRatio(t *testing.T) {
	if r := SampleRatio(config.TelemetryConfig{}); r != 1 {
		t.Fatalf("expected 1 by default, got %v", r)
	}
	if r := SampleRatio(config.TelemetryConfig{SampleRatio: 0.25}); r != 0.25 {
		t.Fatalf("expected 0.25, got %v", r)
	}
	if r := SampleRatio(config.TelemetryConfig{SampleRatio: 4}); r != 1 {
		t.Fatalf("expected out-of-range ratio to clamp to 1, got %v", r)
	}
}
