package temporalx

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")

	cfg := LoadConfig()
	if cfg.Address != "" {
		t.Fatalf("expected empty address, got %q", cfg.Address)
	}
	if cfg.Namespace != "bioterms" {
		t.Fatalf("unexpected namespace %q", cfg.Namespace)
	}
	if cfg.TaskQueue != "bioterms-ingest" {
		t.Fatalf("unexpected task queue %q", cfg.TaskQueue)
	}
}

func TestClampBackoff(t *testing.T) {
	base := 250 * time.Millisecond
	max := 5 * time.Second

	if got := clampBackoff(base, max, 1); got != base {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := clampBackoff(base, max, 2); got != 2*base {
		t.Fatalf("attempt 2: got %v", got)
	}
	if got := clampBackoff(base, max, 20); got != max {
		t.Fatalf("attempt 20 should clamp to max, got %v", got)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	c, err := NewClient(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil client when Temporal is not configured")
	}
}
