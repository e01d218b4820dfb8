package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/platform/metrics"
	"github.com/actilink/actilink-api/internal/ports/out/ratelimit"
)

// routePattern returns the matched chi pattern so metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// accessLog logs one line per request and records request metrics.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			dur := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			metrics.RecordHTTPRequest(r.Method, route, status, dur)

			ev := logger.Info()
			if status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", dur).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}

// RateLimitOptions configures per-client request limiting.
type RateLimitOptions struct {
	Enabled bool
	Limit   int
	Window  time.Duration

	// Limiter, when set, shares counters across instances (Redis). Otherwise
	// an in-process httprate limiter keyed by IP is used.
	Limiter ratelimit.Limiter
}

func rateLimit(opts RateLimitOptions, logger zerolog.Logger) func(http.Handler) http.Handler {
	if opts.Limiter == nil {
		return httprate.Limit(
			opts.Limit,
			opts.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.RecordRateLimited()
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			}),
		)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := opts.Limiter.Allow(r.Context(), clientKey(r), opts.Limit, opts.Window)
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
			}
			if !ok {
				metrics.RecordRateLimited()
				w.Header().Set("Retry-After", strconv.Itoa(int(opts.Window.Seconds())))
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by IP. RealIP has already rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
