package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"facility-access-control/internal/email"
)

type Config struct {
	// Secret key for signing reader device tokens. Must be set in production.
	Secret string `mapstructure:"secret"`

	// TTL for reader provisioning tokens in minutes.
	ReaderTokenTTL uint `mapstructure:"reader_token_ttl"`

	LogLevel string `mapstructure:"log_level"`

	// Address the HTTP server listens on, e.g. ":8080".
	ListenAddr string `mapstructure:"listen_addr"`

	// Base URL for the application. May be relative, e.g. /access/, or
	// absolute, e.g. https://example.com/access/
	BaseURL string `mapstructure:"base_url"`

	// Per-operation storage timeout in seconds. Tap callers are reader
	// devices that expect a prompt entry/exit/rejection answer.
	StorageTimeout uint `mapstructure:"storage_timeout"`

	// How long a person's entry tap remains usable as the borrower context
	// for a following book/computer tap, in seconds.
	BorrowerWindow uint `mapstructure:"borrower_window"`

	// Interval between appointment sweeps in minutes.
	SweepInterval uint `mapstructure:"sweep_interval"`

	// Interval between due-loan reminder runs in minutes.
	ReminderInterval uint `mapstructure:"reminder_interval"`

	// Default loan length in days when the request does not carry one.
	LoanDays uint `mapstructure:"loan_days"`

	// Require a provisioned reader token on the tap endpoint.
	RequireReaderToken bool `mapstructure:"require_reader_token"`

	Storage Storage `mapstructure:"storage"`

	Email email.SMTPConfig `mapstructure:",squash"`
}

var Cfg *Config

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from environment variables and returns a Config struct.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvPrefix("")

	if len(configFile) > 0 {
		for _, path := range configFile {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	// Convert relative sqlite path to the instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" && cfg.RequireReaderToken {
			panic("SECRET configuration variable is required when reader tokens are enforced")
		}
		slog.Warn("Secret is not set. Do not use in production.")
	}

	return &cfg, nil
}

// OpTimeout returns the per-operation storage timeout as a duration.
func (c *Config) OpTimeout() time.Duration {
	if c.StorageTimeout == 0 {
		return 5 * time.Second
	}
	return time.Duration(c.StorageTimeout) * time.Second
}
