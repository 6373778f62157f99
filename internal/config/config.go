// Package config loads application configuration from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

// ScheduleOff disables the balance monitor when used as MASHTAL_BALANCE_SCHEDULE.
const ScheduleOff = "off"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SMSEndpoint    string        `env:"MASHTAL_SMS_ENDPOINT"`
	SMSAccountPath string        `env:"MASHTAL_SMS_ACCOUNT_PATH"`
	SMSBalancePath string        `env:"MASHTAL_SMS_BALANCE_PATH"`
	SMSSendPath    string        `env:"MASHTAL_SMS_SEND_PATH"`
	SMSUsername    string        `env:"MASHTAL_SMS_USERNAME"`
	SMSSecretKey   string        `env:"MASHTAL_SMS_SECRET_KEY"`
	SMSSender      string        `env:"MASHTAL_SMS_SENDER"`
	SMSTimeout     time.Duration `env:"MASHTAL_SMS_TIMEOUT" envDefault:"0s"`

	ListenAddr      string `env:"MASHTAL_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath          string `env:"MASHTAL_DB_PATH" envDefault:"mashtal.db"`
	SecretKeyHex    string `env:"MASHTAL_SECRET_KEY"`
	BalanceSchedule string `env:"MASHTAL_BALANCE_SCHEDULE" envDefault:"@every 1h"`
	OTelEndpoint    string `env:"MASHTAL_OTEL_ENDPOINT"`
	SecureCookies   bool   `env:"MASHTAL_SECURE_COOKIES" envDefault:"false"`

	// SecretKey is the decoded MASHTAL_SECRET_KEY; nil when unset.
	SecretKey []byte
}

// BootstrapCredentials returns the gateway account supplied through the
// environment. Stored credentials take priority over these at startup.
func (c *Config) BootstrapCredentials() model.Credentials {
	return model.Credentials{
		Username:  c.SMSUsername,
		SecretKey: c.SMSSecretKey,
		SenderID:  c.SMSSender,
	}
}

// BalanceMonitorEnabled reports whether scheduled balance checks should run.
func (c *Config) BalanceMonitorEnabled() bool {
	return !strings.EqualFold(c.BalanceSchedule, ScheduleOff)
}

// Load reads a .env file when present, then parses and validates the
// MASHTAL_ environment variables. MASHTAL_SMS_ENDPOINT is required; the SMS
// account variables are optional so the account can be supplied later via the
// API. MASHTAL_SECRET_KEY, when set, must be 64 hex characters.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SMSEndpoint == "" {
		return errors.New("MASHTAL_SMS_ENDPOINT is required")
	}
	u, err := url.Parse(c.SMSEndpoint)
	if err != nil {
		return fmt.Errorf("MASHTAL_SMS_ENDPOINT has invalid URL %q: %w", c.SMSEndpoint, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("MASHTAL_SMS_ENDPOINT must be an absolute http(s) URL, got %q", c.SMSEndpoint)
	}

	if c.SMSTimeout < 0 {
		return fmt.Errorf("MASHTAL_SMS_TIMEOUT must not be negative, got %s", c.SMSTimeout)
	}

	if (c.SMSUsername == "") != (c.SMSSecretKey == "") {
		return errors.New("MASHTAL_SMS_USERNAME and MASHTAL_SMS_SECRET_KEY must be set together")
	}

	if c.SecretKeyHex != "" {
		key, err := hex.DecodeString(c.SecretKeyHex)
		if err != nil {
			return fmt.Errorf("MASHTAL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("MASHTAL_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		c.SecretKey = key
	}

	if c.BalanceMonitorEnabled() {
		if _, err := cron.ParseStandard(c.BalanceSchedule); err != nil {
			return fmt.Errorf("MASHTAL_BALANCE_SCHEDULE has invalid schedule %q: %w", c.BalanceSchedule, err)
		}
	}

	return nil
}
