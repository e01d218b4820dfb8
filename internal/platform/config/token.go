package config

import (
	"fmt"
	"os"
	"time"
)

// TokenConfig configures issuing and verifying HS256 session tokens.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration

	ClockSkew time.Duration
}

// LoadTokenConfigFromEnv reads JWT_* variables. The secret may be empty here;
// Config.validate decides whether that is acceptable for the auth mode.
func LoadTokenConfigFromEnv() (TokenConfig, error) {
	cfg := TokenConfig{
		Secret:    os.Getenv("JWT_SECRET"),
		Issuer:    getEnv("JWT_ISSUER", "actilink"),
		TTL:       24 * time.Hour,
		ClockSkew: 30 * time.Second,
	}

	if v := os.Getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return TokenConfig{}, fmt.Errorf("JWT_TTL must be a duration (e.g. 24h): %w", err)
		}
		cfg.TTL = d
	}
	if v := os.Getenv("JWT_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return TokenConfig{}, fmt.Errorf("JWT_CLOCK_SKEW must be a duration (e.g. 30s): %w", err)
		}
		cfg.ClockSkew = d
	}
	if cfg.Secret != "" && len(cfg.Secret) < 16 {
		return TokenConfig{}, fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return cfg, nil
}
