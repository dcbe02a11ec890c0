package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	BotToken          string
	DatabaseURL       string
	RedisURL          string
	Port              string
	OperatorJWTSecret string
	CORSOrigins       []string
	AdminID           int64
	ConversationTTL   time.Duration
	CodeLength        int
	SendRate          float64
	AuditReportLimit  int
	LogLevel          slog.Level
	DevMode           bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             "8080",
		ConversationTTL:  15 * time.Minute,
		CodeLength:       8,
		SendRate:         25,
		AuditReportLimit: 20,
		LogLevel:         slog.LevelInfo,
	}

	// Load BOT_TOKEN (required)
	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	// Load DATABASE_URL (required)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Load OPERATOR_JWT_SECRET (required, guards the operator API)
	cfg.OperatorJWTSecret = os.Getenv("OPERATOR_JWT_SECRET")
	if cfg.OperatorJWTSecret == "" {
		return nil, fmt.Errorf("OPERATOR_JWT_SECRET environment variable is required")
	}
	if len(cfg.OperatorJWTSecret) < 32 {
		return nil, fmt.Errorf("OPERATOR_JWT_SECRET must be at least 32 characters")
	}

	// Load REDIS_URL (optional, empty disables the code cache)
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	// Load OPERATOR_CORS_ORIGINS (optional, comma separated; empty disables CORS)
	for _, o := range strings.Split(os.Getenv("OPERATOR_CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_ID %q: %w", v, err)
		}
		cfg.AdminID = id
	}

	if v := os.Getenv("CONVERSATION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid CONVERSATION_TTL %q", v)
		}
		cfg.ConversationTTL = ttl
	}

	if v := os.Getenv("CODE_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 8 || n > 10 {
			return nil, fmt.Errorf("invalid CODE_LENGTH %q: must be 8..10", v)
		}
		cfg.CodeLength = n
	}

	if v := os.Getenv("SEND_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("invalid SEND_RATE %q", v)
		}
		cfg.SendRate = r
	}

	if v := os.Getenv("AUDIT_REPORT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid AUDIT_REPORT_LIMIT %q", v)
		}
		cfg.AuditReportLimit = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	// Load DEV_MODE (optional, defaults to false)
	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}

// NewLogger builds the process logger: JSON in production, text in dev mode
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.DevMode {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
