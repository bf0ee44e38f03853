package instrumentation

import (
	"context"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.config.ServiceName != DefaultServiceName {
		t.Errorf("ServiceName = %q, want %q", inst.config.ServiceName, DefaultServiceName)
	}
	if inst.config.ServiceVersion != DefaultServiceVersion {
		t.Errorf("ServiceVersion = %q, want %q", inst.config.ServiceVersion, DefaultServiceVersion)
	}
	if inst.Metrics() == nil {
		t.Error("Metrics() should not be nil")
	}
}

func TestNew_Disabled(t *testing.T) {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.MeterProvider() == nil || inst.TracerProvider() == nil {
		t.Error("providers should be no-op, not nil, when disabled")
	}

	// Recording against no-op instruments must not panic.
	inst.Metrics().SecurityEventsTotal.Add(context.Background(), 1)
	inst.Metrics().OrderTotal.Record(context.Background(), 32.39)
}

func TestMeterAndTracerScopes(t *testing.T) {
	inst, err := New(Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.Meter("security") == nil {
		t.Error("Meter() should not be nil")
	}
	if inst.Tracer("checkout") == nil {
		t.Error("Tracer() should not be nil")
	}
}

func TestRegisterSizeCallbacks(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := inst.RegisterSizeCallbacks(func() int64 { return 2 }, nil); err != nil {
		t.Errorf("RegisterSizeCallbacks() error = %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := inst.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := inst.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
