package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: streamd-test
  env: staging
stream:
  endpoint: wss://realtime.staging.rfp-ml.io/ws
  max_attempts: 8
  base_delay: 500ms
database:
  host: localhost
  port: 5432
  name: stream_events
  user: streamd
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "streamd-test" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "streamd-test")
	}
	if cfg.Stream.Endpoint != "wss://realtime.staging.rfp-ml.io/ws" {
		t.Errorf("Stream.Endpoint = %q", cfg.Stream.Endpoint)
	}
	if cfg.Stream.MaxAttempts != 8 {
		t.Errorf("Stream.MaxAttempts = %d, want 8", cfg.Stream.MaxAttempts)
	}
	if cfg.Stream.BaseDelay != 500*time.Millisecond {
		t.Errorf("Stream.BaseDelay = %v, want 500ms", cfg.Stream.BaseDelay)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: streamd-test
stream:
  endpoint: wss://realtime.rfp-ml.io/ws
database:
  host: localhost
  name: stream_events
  user: streamd
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: streamd-test
stream:
  endpoint: wss://realtime.rfp-ml.io/ws
database:
  host: localhost
  name: stream_events
  user: streamd
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Stream.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Stream.MaxAttempts = %d, want %d", cfg.Stream.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Stream.BaseDelay != DefaultBaseDelay {
		t.Errorf("Stream.BaseDelay = %v, want %v", cfg.Stream.BaseDelay, DefaultBaseDelay)
	}
	if cfg.Stream.MaxDelay != DefaultMaxDelay {
		t.Errorf("Stream.MaxDelay = %v, want %v", cfg.Stream.MaxDelay, DefaultMaxDelay)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.SSLMode != DefaultDBSSLMode {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, DefaultDBSSLMode)
	}
	if cfg.Archive.BatchSize != DefaultBatchSize {
		t.Errorf("Archive.BatchSize = %d, want %d", cfg.Archive.BatchSize, DefaultBatchSize)
	}
	if cfg.Status.Port != DefaultStatusPort {
		t.Errorf("Status.Port = %d, want %d", cfg.Status.Port, DefaultStatusPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Instance.ID = "streamd-test"
		cfg.Stream.Endpoint = "wss://realtime.rfp-ml.io/ws"
		cfg.Database.Host = "localhost"
		cfg.Database.Name = "stream_events"
		cfg.Database.User = "streamd"
		cfg.Database.Password = "testpass"
		cfg.applyDefaults()
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing instance id", func(c *Config) { c.Instance.ID = "" }},
		{"missing endpoint", func(c *Config) { c.Stream.Endpoint = "" }},
		{"http endpoint", func(c *Config) { c.Stream.Endpoint = "https://realtime.rfp-ml.io/ws" }},
		{"negative max attempts", func(c *Config) { c.Stream.MaxAttempts = -1 }},
		{"max delay below base", func(c *Config) { c.Stream.MaxDelay = c.Stream.BaseDelay / 2 }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db password", func(c *Config) { c.Database.Password = "" }},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 99 }},
		{"bad status port", func(c *Config) { c.Status.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
