package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Poller        PollerConfig        `yaml:"poller"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	MaxReadConns    int           `yaml:"max_read_conns"`
	RetentionDays   int           `yaml:"retention_days"`
	RetentionPeriod time.Duration `yaml:"retention_period"`
}

type PollerConfig struct {
	Tick         time.Duration `yaml:"tick"`
	Workers      int           `yaml:"workers"`
	CheckTimeout time.Duration `yaml:"check_timeout"`
	ChecksPerSec float64       `yaml:"checks_per_sec"`
	InitWindow   time.Duration `yaml:"init_window"`
}

type NotificationsConfig struct {
	ChannelTimeout time.Duration   `yaml:"channel_timeout"`
	Webhooks       []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret,omitempty"`
}

type MaintenanceConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type CacheConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "simplewatch.db",
			MaxReadConns:    4,
			RetentionDays:   365,
			RetentionPeriod: 1 * time.Hour,
		},
		Poller: PollerConfig{
			Tick:         30 * time.Second,
			Workers:      10,
			CheckTimeout: 30 * time.Second,
			ChecksPerSec: 25,
			InitWindow:   1 * time.Minute,
		},
		Notifications: NotificationsConfig{
			ChannelTimeout: 10 * time.Second,
		},
		Maintenance: MaintenanceConfig{
			SweepInterval: 1 * time.Minute,
		},
		Cache: CacheConfig{
			RefreshInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validatePoller(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if c.Maintenance.SweepInterval <= 0 {
		return fmt.Errorf("maintenance.sweep_interval must be positive")
	}
	if c.Cache.RefreshInterval <= 0 {
		return fmt.Errorf("cache.refresh_interval must be positive")
	}
	return validateLogLevel(c.Logging.Level)
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxReadConns <= 0 {
		return fmt.Errorf("database.max_read_conns must be positive")
	}
	if c.Database.RetentionDays <= 0 {
		return fmt.Errorf("database.retention_days must be positive")
	}
	if c.Database.RetentionPeriod <= 0 {
		return fmt.Errorf("database.retention_period must be positive")
	}
	return nil
}

func (c *Config) validatePoller() error {
	if c.Poller.Tick < 5*time.Second {
		return fmt.Errorf("poller.tick must be at least 5s")
	}
	if c.Poller.Workers <= 0 {
		return fmt.Errorf("poller.workers must be positive")
	}
	if c.Poller.CheckTimeout <= 0 {
		return fmt.Errorf("poller.check_timeout must be positive")
	}
	if c.Poller.ChecksPerSec <= 0 {
		return fmt.Errorf("poller.checks_per_sec must be positive")
	}
	if c.Poller.InitWindow <= 0 {
		return fmt.Errorf("poller.init_window must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.ChannelTimeout <= 0 {
		return fmt.Errorf("notifications.channel_timeout must be positive")
	}
	for i, wh := range c.Notifications.Webhooks {
		u, err := url.Parse(wh.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("notifications.webhooks[%d].url must be an absolute URL", i)
		}
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
}
