package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
)

type Config struct {
	// Web front end
	Port              string        `env:"PORT" envDefault:"3000"`
	LedgerAPIURL      string        `env:"LEDGER_API_URL" envDefault:"http://127.0.0.1:8000"`
	APIRequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"10s"`

	// Ledger API
	APIPort        string   `env:"API_PORT" envDefault:"8000"`
	SQLiteDBPath   string   `env:"SQLITE_DB_PATH" envDefault:"./data/emotion_ledger.db"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`

	// AMQP (optional, events disabled when the URL is empty)
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"emotion_ledger"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"expense_recorded"`

	// Worker
	AuditInterval time.Duration `env:"AUDIT_INTERVAL" envDefault:"1m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	for _, p := range []struct{ name, value string }{{"port", c.Port}, {"API port", c.APIPort}} {
		if port, err := strconv.Atoi(p.value); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a number", p.name, p.value))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", p.name, port))
		}
	}

	if parsedURL, err := url.Parse(c.LedgerAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger API URL '%s': %v", c.LedgerAPIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid ledger API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid ledger API URL '%s': missing host", c.LedgerAPIURL))
	}

	if c.APIRequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API request timeout %v: must be positive", c.APIRequestTimeout))
	} else if c.APIRequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API request timeout %v: must be at most 5 minutes", c.APIRequestTimeout))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if len(c.AllowedOrigins) == 0 {
		errors = append(errors, "at least one allowed origin is required")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid allowed origin '%s'", origin))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuditInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at least 1 second", c.AuditInterval))
	} else if c.AuditInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at most 24 hours", c.AuditInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
