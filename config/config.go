package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Parim    ParimConfig    `yaml:"parim"`
	Mailer   MailerConfig   `yaml:"mailer"`
	Sync     SyncConfig     `yaml:"sync"`
	Forward  ForwardConfig  `yaml:"forward"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration for the forwarding page.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ParimConfig holds the upstream workforce-management API settings.
// The key material is read from the environment, never from yaml.
type ParimConfig struct {
	TeamName       string        `yaml:"team_name"`
	BaseURL        string        `yaml:"base_url"` // overrides team_name when set, used in tests
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	PublicKey      string        `yaml:"-"` // PARIM_PUBLIC_API_KEY
	PrivateKey     string        `yaml:"-"` // PARIM_PRIVATE_API_KEY
	BasicAuth      string        `yaml:"-"` // PARIM_BASIC_AUTH
}

// MailerConfig holds the transactional-email provider settings.
type MailerConfig struct {
	URL                 string        `yaml:"url"`
	ReplyTo             string        `yaml:"reply_to"`
	ReplyToName         string        `yaml:"reply_to_name"`
	NotifyTo            string        `yaml:"notify_to"`
	NotifyToName        string        `yaml:"notify_to_name"`
	ClockInTemplateID   int64         `yaml:"clock_in_template_id"`
	ForwardTemplateID   int64         `yaml:"forward_template_id"`
	TimeoutSeconds      int           `yaml:"timeout_seconds"`
	Timeout             time.Duration `yaml:"-"`
	APIKey              string        `yaml:"-"` // BREVO_API_KEY
}

// SyncConfig controls the periodic shift synchronization loop.
type SyncConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	Timezone        string        `yaml:"timezone"`
}

// ForwardConfig controls the token-gated forwarding workflow.
type ForwardConfig struct {
	BaseURL              string        `yaml:"base_url"` // public URL of the forwarding page
	TokenTTLHours        int           `yaml:"token_ttl_hours"`
	TokenTTL             time.Duration `yaml:"-"`
	ConfirmWindowSeconds int           `yaml:"confirm_window_seconds"`
	ConfirmWindow        time.Duration `yaml:"-"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Load reads the configuration from the given path and applies defaults
// and environment overrides for secrets.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if cfg.Parim.BaseURL == "" {
		if cfg.Parim.TeamName == "" {
			return nil, fmt.Errorf("parim.team_name or parim.base_url must be set")
		}
		cfg.Parim.BaseURL = fmt.Sprintf("https://%s.parim.co", cfg.Parim.TeamName)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Parim.TimeoutSeconds <= 0 {
		cfg.Parim.TimeoutSeconds = 30
	}
	cfg.Parim.Timeout = time.Duration(cfg.Parim.TimeoutSeconds) * time.Second

	if cfg.Mailer.URL == "" {
		cfg.Mailer.URL = "https://api.brevo.com/v3/smtp/email"
	}
	if cfg.Mailer.TimeoutSeconds <= 0 {
		cfg.Mailer.TimeoutSeconds = 15
	}
	cfg.Mailer.Timeout = time.Duration(cfg.Mailer.TimeoutSeconds) * time.Second

	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 300
	}
	cfg.Sync.Interval = time.Duration(cfg.Sync.IntervalSeconds) * time.Second
	if cfg.Sync.Timezone == "" {
		cfg.Sync.Timezone = "Europe/London"
	}

	if cfg.Forward.TokenTTLHours <= 0 {
		cfg.Forward.TokenTTLHours = 24
	}
	cfg.Forward.TokenTTL = time.Duration(cfg.Forward.TokenTTLHours) * time.Hour
	if cfg.Forward.ConfirmWindowSeconds <= 0 {
		cfg.Forward.ConfirmWindowSeconds = 300
	}
	cfg.Forward.ConfirmWindow = time.Duration(cfg.Forward.ConfirmWindowSeconds) * time.Second

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PARIM_PUBLIC_API_KEY"); v != "" {
		cfg.Parim.PublicKey = v
	}
	if v := os.Getenv("PARIM_PRIVATE_API_KEY"); v != "" {
		cfg.Parim.PrivateKey = v
	}
	if v := os.Getenv("PARIM_BASIC_AUTH"); v != "" {
		cfg.Parim.BasicAuth = v
	}
	if v := os.Getenv("BREVO_API_KEY"); v != "" {
		cfg.Mailer.APIKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}
