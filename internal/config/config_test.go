package config

import (
	"testing"
	"time"
)

func TestLoadClientConfigDefaults(t *testing.T) {
	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("expected default 3s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.PollBackoff {
		t.Fatal("backoff should be off by default")
	}
}

func TestLoadClientConfigOverrides(t *testing.T) {
	t.Setenv("COURIER_API_URL", "http://api.test")
	t.Setenv("COURIER_POLL_INTERVAL", "500ms")
	t.Setenv("COURIER_POLL_BACKOFF", "true")
	t.Setenv("COURIER_LOCATION_LAT", "27.7172")

	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "http://api.test" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval != 500*time.Millisecond || !cfg.PollBackoff {
		t.Fatalf("poll settings not applied: %v %v", cfg.PollInterval, cfg.PollBackoff)
	}
	if cfg.LocationLat != 27.7172 {
		t.Fatalf("unexpected lat %f", cfg.LocationLat)
	}
}

func TestLoadClientConfigRejectsBadValues(t *testing.T) {
	t.Setenv("COURIER_POLL_INTERVAL", "not-a-duration")
	t.Setenv("COURIER_LOCATION_LAT", "abc")
	if _, err := LoadClientConfig(); err == nil {
		t.Fatal("expected error for invalid env values")
	}
}
