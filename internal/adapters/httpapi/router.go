package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/actilink/actilink-api/internal/platform/metrics"
)

type RouterOptions struct {
	// AuthMiddleware resolves the caller. When nil, every protected route
	// answers 401.
	AuthMiddleware func(http.Handler) http.Handler
	RateLimit      RateLimitOptions
	// Logger is used for access logs. The zero value falls back to the global logger.
	Logger *zerolog.Logger
}

// NewRouter constructs the API HTTP router with bearer-less defaults. Callers
// that need auth use NewRouterWithOptions.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	logger := zlog.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	authMW := opts.AuthMiddleware
	if authMW == nil {
		authMW = NewAuthMiddleware(rejectAll{})
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))
	if opts.RateLimit.Enabled {
		r.Use(rateLimit(opts.RateLimit, logger))
	}

	// Infra endpoints, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/auth/register", s.Register)
	r.Post("/auth/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(authMW)

		r.Post("/auth/logout", s.Logout)

		r.Get("/me", s.GetMe)
		r.Get("/me/profile", s.GetMyProfile)
		r.Patch("/me/profile", s.UpdateMyProfile)
		r.Get("/me/activities", s.ListMyActivities)
		r.Get("/users/{userId}/profile", s.GetUserProfile)

		r.Get("/activities", s.ListActivities)
		r.Post("/activities", s.CreateActivity)
		r.Get("/activities/{activityId}", s.GetActivity)
		r.Put("/activities/{activityId}", s.PutActivity)
		r.Delete("/activities/{activityId}", s.DeleteActivity)
		r.Post("/activities/{activityId}/join", s.JoinActivity)
		r.Post("/activities/{activityId}/leave", s.LeaveActivity)

		r.Get("/markers", s.ListMarkers)
	})

	return r
}
