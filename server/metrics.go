package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors of one Server. They live on their
// own registry so several servers (and tests) can coexist in a process.
type Metrics struct {
	registry *prometheus.Registry

	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	predictions      *prometheus.CounterVec
	sessions         prometheus.Gauge
	requests         *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.trainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forestcal_training_runs_total",
			Help: "Total number of training runs by outcome",
		},
		[]string{"result"},
	)

	m.trainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forestcal_training_duration_seconds",
			Help:    "Wall time of successful training runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	m.predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forestcal_predictions_total",
			Help: "Total number of single-row predictions by outcome",
		},
		[]string{"result"},
	)

	m.sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forestcal_sessions",
			Help: "Number of open sessions",
		},
	)

	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forestcal_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)

	m.registry.MustRegister(
		m.trainingRuns,
		m.trainingDuration,
		m.predictions,
		m.sessions,
		m.requests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordTraining records the outcome of a training run.
func (m *Metrics) RecordTraining(d time.Duration, err error) {
	if err != nil {
		m.trainingRuns.With(prometheus.Labels{"result": "error"}).Inc()
		return
	}
	m.trainingRuns.With(prometheus.Labels{"result": "ok"}).Inc()
	m.trainingDuration.Observe(d.Seconds())
}

// RecordPrediction records the outcome of a prediction.
func (m *Metrics) RecordPrediction(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.predictions.With(prometheus.Labels{"result": result}).Inc()
}

// SetSessions sets the open-session gauge.
func (m *Metrics) SetSessions(n int) { m.sessions.Set(float64(n)) }

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument is a mux middleware counting requests per route template.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.With(prometheus.Labels{
			"route":  route,
			"method": r.Method,
			"code":   strconv.Itoa(rec.code),
		}).Inc()
	})
}
