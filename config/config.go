// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For the required bot credentials, use ValidateBotReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTargetChannelID is the source channel monitored when
// TARGET_CHANNEL_ID is not set. Exactly one channel is the source of truth
// per running instance.
const DefaultTargetChannelID int64 = -1002682552255

type Config struct {
	// Telegram
	BotToken        string
	TargetChannelID int64
	WebhookURL      string
	APIBaseURL      string

	// HTTP
	HTTPAddr string

	// Database (optional audit trail; empty disables it)
	DBDsn string

	// Delivery
	DefaultBackoff time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail if
// the bot token is missing; use ValidateBotReady() when you require the
// Telegram client. An empty DB_DSN disables the audit store rather than
// erroring.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		// legacy variable name
		cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	cfg.TargetChannelID = DefaultTargetChannelID
	if v := os.Getenv("TARGET_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TARGET_CHANNEL_ID: %w", err)
		}
		cfg.TargetChannelID = id
	}

	cfg.WebhookURL = strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/")

	cfg.APIBaseURL = os.Getenv("TELEGRAM_API_BASE")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.telegram.org"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		// PORT is what the hosting platform injects; HTTP_ADDR wins when both set.
		if p := portFromEnv(); p != "" {
			cfg.HTTPAddr = ":" + p
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.DefaultBackoff = time.Second
	if v := os.Getenv("DELIVERY_DEFAULT_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid DELIVERY_DEFAULT_BACKOFF: %q", v)
		}
		cfg.DefaultBackoff = d
	}

	return cfg, nil
}

// portFromEnv sanitizes the PORT variable; some platforms append noise after
// the number.
func portFromEnv() string {
	raw := os.Getenv("PORT")
	if raw == "" {
		return ""
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return ""
	}
	return fields[0]
}

// ValidateBotReady checks required fields when the Telegram client is needed.
func (c *Config) ValidateBotReady() error {
	if c.BotToken == "" {
		return fmt.Errorf("missing telegram env: require BOT_TOKEN")
	}
	if len(strings.Split(c.BotToken, ":")) != 2 {
		return fmt.Errorf("invalid bot token format")
	}
	return nil
}

// WebhookEndpoint returns the full webhook callback URL, or empty when
// WEBHOOK_URL is unset (webhook registration disabled).
func (c *Config) WebhookEndpoint() string {
	if c.WebhookURL == "" {
		return ""
	}
	return c.WebhookURL + "/webhook"
}
