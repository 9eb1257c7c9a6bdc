package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "game_session_engine"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "started_total",
			Help:      "Sessions created, by difficulty.",
		},
		[]string{"difficulty"},
	)

	movesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "moves_total",
			Help:      "Plies recorded, by side (human or engine).",
		},
		[]string{"side"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "settlements_total",
			Help:      "Sessions settled, by result.",
		},
		[]string{"result"},
	)

	creditsDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "debited_credits_total",
			Help:      "Credits debited, by reason.",
		},
		[]string{"reason"},
	)

	failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "failures_total",
			Help:      "Failed core operations, by error code.",
		},
		[]string{"code"},
	)

	archiveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "uploads_total",
			Help:      "Finished-game archive uploads.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		sessionsStarted,
		movesApplied,
		settlements,
		creditsDebited,
		failures,
		archiveRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// FiberHandler serves Handler on a fiber route.
func FiberHandler() fiber.Handler {
	return adaptor.HTTPHandler(Handler())
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func SessionStarted(difficulty string) {
	sessionsStarted.WithLabelValues(difficulty).Inc()
}

func MoveRecorded(side string) {
	movesApplied.WithLabelValues(side).Inc()
}

func Settled(result string) {
	settlements.WithLabelValues(result).Inc()
}

func CreditsDebited(reason string, amount float64) {
	creditsDebited.WithLabelValues(reason).Add(amount)
}

func Failure(code string) {
	failures.WithLabelValues(code).Inc()
}

func ArchiveUpload(success bool) {
	archiveRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
}
