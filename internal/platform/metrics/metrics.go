package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	activityOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actilink_activity_operations_total",
			Help: "Activity directory operations by kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actilink_auth_attempts_total",
			Help: "Registration and login attempts by outcome",
		},
		[]string{"kind", "outcome"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actilink_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	eventsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actilink_events_publish_failed_total",
			Help: "Domain events that could not be published",
		},
		[]string{"routing_key"},
	)
)

// RecordHTTPRequest records one served request. route is the chi route pattern.
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordActivityOp counts a directory operation. outcome is "ok" or "error".
func RecordActivityOp(op string, err error) {
	activityOpsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func RecordAuthAttempt(kind string, ok bool) {
	o := "ok"
	if !ok {
		o = "failed"
	}
	authAttemptsTotal.WithLabelValues(kind, o).Inc()
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

func RecordPublishFailed(routingKey string) {
	eventsPublishFailed.WithLabelValues(routingKey).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
