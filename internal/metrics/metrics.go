// Package metrics exposes Prometheus collectors for the engine and the HTTP
// API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Toggles              *prometheus.CounterVec
	StoreDuration        *prometheus.HistogramVec
	PointsAwarded        prometheus.Counter
	PointsReversed       prometheus.Counter
	AchievementsUnlocked *prometheus.CounterVec
	RequestCounter       *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakly_toggles_total",
				Help: "Completion toggles by direction and outcome",
			},
			[]string{"action", "result"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "streakly_store_call_duration_seconds",
				Help:    "Duration of persistence calls issued by the engine",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakly_points_awarded_total",
			Help: "Points granted for confirmed completions",
		}),
		PointsReversed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakly_points_reversed_total",
			Help: "Points taken back when completions were removed",
		}),
		AchievementsUnlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streakly_achievements_unlocked_total",
				Help: "Achievements unlocked by kind",
			},
			[]string{"kind"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		m.Toggles,
		m.StoreDuration,
		m.PointsAwarded,
		m.PointsReversed,
		m.AchievementsUnlocked,
		m.RequestCounter,
		m.RequestDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveToggle(action, result string) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveStoreCall(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObservePoints records a ledger delta; negative values count as reversals.
func (m *Metrics) ObservePoints(delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta > 0 {
		m.PointsAwarded.Add(float64(delta))
		return
	}
	m.PointsReversed.Add(float64(-delta))
}

func (m *Metrics) ObserveUnlock(kind string) {
	if m == nil {
		return
	}
	m.AchievementsUnlocked.WithLabelValues(kind).Inc()
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
