package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/metrics"
)

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (string, error) {
	return "", errors.New("no token verifier configured")
}

// isPublicPath reports whether a path is served without authentication.
func isPublicPath(p string) bool {
	switch p {
	case "/healthz", "/metrics", "/auth/register", "/auth/login":
		return true
	}
	return false
}

// NewAuthMiddleware enforces Authorization: Bearer <token> on every non-public route.
//
// On success, it stores the authenticated user id (token `sub`) in request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeUnauthenticated(w, r, "missing Authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeUnauthenticated(w, r, "malformed Authorization header")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeUnauthenticated(w, r, "missing bearer token")
				return
			}

			sub, err := v.Verify(r.Context(), raw)
			if err != nil {
				metrics.RecordAuthAttempt("token", false)
				writeUnauthenticated(w, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.UserID(sub))))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit subject via X-Debug-Subject and falls back to
// defaultSubject when the header is absent. Do NOT use this in production.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeUnauthenticated(w, r, "missing subject (set X-Debug-Subject)")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.UserID(sub))))
		})
	}
}
