package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountLoginIncrementsByProviderAndOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	provider, err := NewProvider(registry)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	provider.CountLogin("local", "success")
	provider.CountLogin("local", "success")
	provider.CountLogin("google", "failure")

	if got := testutil.ToFloat64(provider.loginCounter.WithLabelValues("local", "success")); got != 2 {
		t.Errorf("local/success = %f, want 2", got)
	}
	if got := testutil.ToFloat64(provider.loginCounter.WithLabelValues("google", "failure")); got != 1 {
		t.Errorf("google/failure = %f, want 1", got)
	}
}

func TestNewProviderReusesRegisteredCounter(t *testing.T) {
	registry := prometheus.NewRegistry()

	first, err := NewProvider(registry)
	if err != nil {
		t.Fatalf("first NewProvider: %v", err)
	}
	second, err := NewProvider(registry)
	if err != nil {
		t.Fatalf("second NewProvider: %v", err)
	}
	if first.loginCounter != second.loginCounter {
		t.Error("expected the login counter to be reused, not re-registered")
	}
}

func TestCountLoginOnNilProviderIsSafe(t *testing.T) {
	var provider *Provider
	provider.CountLogin("local", "success")
}
