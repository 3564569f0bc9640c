package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Database.Path != "simplewatch.db" {
		t.Fatalf("expected simplewatch.db, got %s", cfg.Database.Path)
	}
	if cfg.Database.RetentionDays != 365 {
		t.Fatalf("expected 365 retention days, got %d", cfg.Database.RetentionDays)
	}
	if cfg.Poller.Workers != 10 {
		t.Fatalf("expected 10 workers, got %d", cfg.Poller.Workers)
	}
	if cfg.Poller.Tick != 30*time.Second {
		t.Fatalf("expected 30s tick, got %s", cfg.Poller.Tick)
	}
	if cfg.Notifications.ChannelTimeout != 10*time.Second {
		t.Fatalf("expected 10s channel timeout, got %s", cfg.Notifications.ChannelTimeout)
	}
	if cfg.Maintenance.SweepInterval != time.Minute {
		t.Fatalf("expected 1m sweep interval, got %s", cfg.Maintenance.SweepInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info log level, got %s", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid defaults", func(t *testing.T) {
		if err := Defaults().Validate(); err != nil {
			t.Fatal(err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{
			name:   "empty database path",
			modify: func(c *Config) { c.Database.Path = "" },
			errSub: "database.path",
		},
		{
			name:   "zero read conns",
			modify: func(c *Config) { c.Database.MaxReadConns = 0 },
			errSub: "max_read_conns",
		},
		{
			name:   "zero retention days",
			modify: func(c *Config) { c.Database.RetentionDays = 0 },
			errSub: "retention_days",
		},
		{
			name:   "zero retention period",
			modify: func(c *Config) { c.Database.RetentionPeriod = 0 },
			errSub: "retention_period",
		},
		{
			name:   "tick too small",
			modify: func(c *Config) { c.Poller.Tick = 2 * time.Second },
			errSub: "poller.tick",
		},
		{
			name:   "zero workers",
			modify: func(c *Config) { c.Poller.Workers = 0 },
			errSub: "workers",
		},
		{
			name:   "zero check timeout",
			modify: func(c *Config) { c.Poller.CheckTimeout = 0 },
			errSub: "check_timeout",
		},
		{
			name:   "negative checks per sec",
			modify: func(c *Config) { c.Poller.ChecksPerSec = -1 },
			errSub: "checks_per_sec",
		},
		{
			name:   "zero init window",
			modify: func(c *Config) { c.Poller.InitWindow = 0 },
			errSub: "init_window",
		},
		{
			name:   "zero channel timeout",
			modify: func(c *Config) { c.Notifications.ChannelTimeout = 0 },
			errSub: "channel_timeout",
		},
		{
			name: "relative webhook URL",
			modify: func(c *Config) {
				c.Notifications.Webhooks = []WebhookConfig{{URL: "not-a-url"}}
			},
			errSub: "webhooks[0].url",
		},
		{
			name:   "zero sweep interval",
			modify: func(c *Config) { c.Maintenance.SweepInterval = 0 },
			errSub: "sweep_interval",
		},
		{
			name:   "zero refresh interval",
			modify: func(c *Config) { c.Cache.RefreshInterval = 0 },
			errSub: "refresh_interval",
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Logging.Level = "trace" },
			errSub: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.modify(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %q", tt.errSub, err.Error())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("valid YAML", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		data := `
database:
  path: "test.db"
poller:
  tick: 1m
  workers: 4
notifications:
  webhooks:
    - url: "https://hooks.example.com/status"
      secret: "s3cret"
logging:
  level: "debug"
`
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Database.Path != "test.db" {
			t.Fatalf("expected test.db, got %s", cfg.Database.Path)
		}
		if cfg.Poller.Tick != time.Minute {
			t.Fatalf("expected 1m tick, got %s", cfg.Poller.Tick)
		}
		if cfg.Poller.Workers != 4 {
			t.Fatalf("expected 4 workers, got %d", cfg.Poller.Workers)
		}
		// Sections absent from the file keep their defaults.
		if cfg.Database.RetentionDays != 365 {
			t.Fatalf("expected default retention days, got %d", cfg.Database.RetentionDays)
		}
		if len(cfg.Notifications.Webhooks) != 1 || cfg.Notifications.Webhooks[0].Secret != "s3cret" {
			t.Fatalf("unexpected webhooks: %+v", cfg.Notifications.Webhooks)
		}
	})

	t.Run("env var expansion", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		t.Setenv("SIMPLEWATCH_TEST_DB", "expanded.db")
		data := `
database:
  path: "${SIMPLEWATCH_TEST_DB}"
`
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Database.Path != "expanded.db" {
			t.Fatalf("expected expanded.db, got %s", cfg.Database.Path)
		}
	})

	t.Run("invalid YAML", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte("{{invalid"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Fatal("expected error for invalid YAML")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml")
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}
