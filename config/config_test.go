package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresRealtimeBaseURL(t *testing.T) {
	unsetEnv(t, "REALTIME_BASE_URL")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing REALTIME_BASE_URL")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "REALTIME_BASE_URL", "wss://realtime.example.test")
	setEnv(t, "APP_SERVICE_NAME", "payments-console-test")
	setEnv(t, "API_BASE_URL", "https://api.example.test")
	setEnv(t, "REALTIME_MAX_RECONNECT_ATTEMPTS", "7")
	setEnv(t, "REALTIME_RECONNECT_DELAY_SECONDS", "4")
	setEnv(t, "POLL_MAX_ATTEMPTS", "12")
	setEnv(t, "POLL_INTERVAL_SECONDS", "2")
	setEnv(t, "POLL_ERROR_INTERVAL_SECONDS", "6")
	setEnv(t, "POLL_START_DELAY_SECONDS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "payments-console-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.Realtime.BaseURL != "wss://realtime.example.test" {
		t.Fatalf("unexpected realtime base url: %s", cfg.Realtime.BaseURL)
	}
	if cfg.Realtime.MaxReconnectAttempts != 7 {
		t.Fatalf("unexpected reconnect attempts: %d", cfg.Realtime.MaxReconnectAttempts)
	}
	if cfg.Realtime.ReconnectDelay != 4*time.Second {
		t.Fatalf("unexpected reconnect delay: %v", cfg.Realtime.ReconnectDelay)
	}
	if cfg.API.BaseURL != "https://api.example.test" {
		t.Fatalf("unexpected api base url: %s", cfg.API.BaseURL)
	}
	if cfg.Poll.MaxAttempts != 12 {
		t.Fatalf("unexpected poll attempts: %d", cfg.Poll.MaxAttempts)
	}
	if cfg.Poll.Interval != 2*time.Second || cfg.Poll.ErrorInterval != 6*time.Second {
		t.Fatalf("unexpected poll intervals: %+v", cfg.Poll)
	}
	if cfg.Poll.StartDelay != time.Second {
		t.Fatalf("unexpected poll start delay: %v", cfg.Poll.StartDelay)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected default log level: %s", cfg.Log.Level)
	}
}
