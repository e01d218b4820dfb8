package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/actilink/actilink-api/internal/platform/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager issues and verifies HS256 session tokens whose subject is the user id.
type Manager struct {
	cfg   config.TokenConfig
	clock Clock
}

func New(cfg config.TokenConfig) *Manager {
	return NewWithClock(cfg, nil)
}

func NewWithClock(cfg config.TokenConfig, clock Clock) *Manager {
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{cfg: cfg, clock: clock}
}

// Issue mints a token for sub, valid for the configured TTL.
func (m *Manager) Issue(sub string) (string, time.Time, error) {
	if sub == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	if m.cfg.Secret == "" {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	now := m.clock.Now()
	exp := now.Add(m.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and expiry and returns the `sub` claim.
// Every failure maps to ErrUnauthorized.
func (m *Manager) Verify(ctx context.Context, token string) (string, error) {
	_ = ctx
	if m.cfg.Secret == "" {
		return "", ErrUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(m.clock.Now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(m.cfg.Secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
