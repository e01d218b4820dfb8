package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes.
const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	AppEnv string
	Port   int

	// Auth
	AuthMode   string
	DevSubject string
	Token      TokenConfig

	// Storage
	StorageBackend string
	DatabaseURL    string
	AutoMigrate    bool
	IdempotencyTTL time.Duration

	// Redis (rate limiting); empty address falls back to in-process limiting
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Rate limit
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// RabbitMQ; empty URL disables event publishing
	RabbitURL      string
	RabbitExchange string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getInt("PORT", 8080)

	cfg.AuthMode = strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT))
	cfg.DevSubject = getEnv("DEV_SUBJECT", "dev-user")

	tok, err := LoadTokenConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Token = tok

	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AutoMigrate = getBool("DB_AUTO_MIGRATE", true)
	cfg.IdempotencyTTL = getDuration("IDEMPOTENCY_TTL", 24*time.Hour)

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_REQUESTS_LIMIT", 100)
	cfg.RLWindow = time.Duration(getInt("RL_WINDOW_SECONDS", 60)) * time.Second

	cfg.RabbitURL = getEnv("RABBITMQ_URL", "")
	cfg.RabbitExchange = getEnv("RABBITMQ_EXCHANGE", "actilink.events")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthModeJWT, AuthModeDev:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeDev, c.AuthMode)
	}
	if c.AuthMode == AuthModeJWT && c.Token.Secret == "" {
		return fmt.Errorf("missing JWT_SECRET (required when AUTH_MODE=%s)", AuthModeJWT)
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL (required when STORAGE_BACKEND=%s)", StoragePostgres)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMemory, StoragePostgres, c.StorageBackend)
	}
	if c.RLEnabled && (c.RLLimit <= 0 || c.RLWindow <= 0) {
		return fmt.Errorf("rate limit requires positive RL_REQUESTS_LIMIT and RL_WINDOW_SECONDS")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
