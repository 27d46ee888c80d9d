package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.GRPC.Enabled {
		t.Error("GRPC.Enabled = true, want false by default")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.ReaderDSN != cfg.Database.WriterDSN {
		t.Error("ReaderDSN should fall back to WriterDSN when unset")
	}
	if cfg.Messaging.Kafka.Topic != "orders.events" {
		t.Errorf("Kafka.Topic = %q, want orders.events", cfg.Messaging.Kafka.Topic)
	}
	if cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("Cache.DefaultTTL = %v, want 5m", cfg.Cache.DefaultTTL)
	}
	if cfg.Observability.PrometheusPath != "/metrics" {
		t.Errorf("PrometheusPath = %q, want /metrics", cfg.Observability.PrometheusPath)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("OBS_LOG_LEVEL", "  DEBUG ")
	t.Setenv("OBS_PROMETHEUS_PATH", "internal/metrics")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if cfg.HTTP.Port != 9999 {
		t.Errorf("HTTP.Port = %d, want 9999", cfg.HTTP.Port)
	}
	if cfg.Cache.Driver != "noop" {
		t.Errorf("Cache.Driver = %q, want noop when cache disabled", cfg.Cache.Driver)
	}
	if cfg.Messaging.Driver != "noop" {
		t.Errorf("Messaging.Driver = %q, want noop when messaging disabled", cfg.Messaging.Driver)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Observability.LogLevel)
	}
	if cfg.Observability.PrometheusPath != "/internal/metrics" {
		t.Errorf("PrometheusPath = %q, want leading slash added", cfg.Observability.PrometheusPath)
	}
}

func TestNewRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid http port", map[string]string{"HTTP_PORT": "-1"}},
		{"grpc enabled without port", map[string]string{"GRPC_ENABLED": "true", "GRPC_PORT": "0"}},
		{"unknown cache driver", map[string]string{"CACHE_DRIVER": "memcached"}},
		{"unknown messaging driver", map[string]string{"MESSAGING_DRIVER": "rabbitmq"}},
		{"kafka without topic", map[string]string{"KAFKA_TOPIC": ""}},
		{"missing writer dsn", map[string]string{"DB_WRITER_DSN": ""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := New(); err == nil {
				t.Fatal("New() succeeded, want error")
			}
		})
	}
}
