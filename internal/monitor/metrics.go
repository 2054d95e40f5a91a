package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors for a monitor and its HTTP surface.
// Each Metrics owns its registry so tests and multiple monitors do not clash.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	samplesTotal      *prometheus.CounterVec
	samplesDropped    *prometheus.CounterVec
	gesturesTotal     prometheus.Counter
	actuatorRuns      *prometheus.CounterVec
	actuatorFailures  *prometheus.CounterVec
	sessionActive     prometheus.Gauge
	pendingEvents     prometheus.Gauge
	logSize           prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxigesture_samples_total",
			Help: "Sensor samples accepted, by modality.",
		}, []string{"modality"}),
		samplesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxigesture_samples_dropped_total",
			Help: "Sensor samples dropped, by reason.",
		}, []string{"reason"}),
		gesturesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proxigesture_gestures_total",
			Help: "Gestures detected.",
		}),
		actuatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxigesture_actuator_runs_total",
			Help: "Successful actuator runs, by actuator.",
		}, []string{"actuator"}),
		actuatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxigesture_actuator_failures_total",
			Help: "Failed actuator runs, by actuator.",
		}, []string{"actuator"}),
		sessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxigesture_session_active",
			Help: "1 while a monitoring session is running.",
		}),
		pendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxigesture_pending_events",
			Help: "Near passes counted toward the next gesture.",
		}),
		logSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proxigesture_log_readings",
			Help: "Readings held in the sample log.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.samplesTotal,
		m.samplesDropped,
		m.gesturesTotal,
		m.actuatorRuns,
		m.actuatorFailures,
		m.sessionActive,
		m.pendingEvents,
		m.logSize,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request counts and durations under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) sample(modality string) {
	if m == nil {
		return
	}
	m.samplesTotal.WithLabelValues(modality).Inc()
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.samplesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) gesture() {
	if m == nil {
		return
	}
	m.gesturesTotal.Inc()
}

// ActuatorResult counts one actuator run; err nil means success.
func (m *Metrics) ActuatorResult(name string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.actuatorFailures.WithLabelValues(name).Inc()
		return
	}
	m.actuatorRuns.WithLabelValues(name).Inc()
}

func (m *Metrics) session(active bool) {
	if m == nil {
		return
	}
	if active {
		m.sessionActive.Set(1)
	} else {
		m.sessionActive.Set(0)
	}
}

func (m *Metrics) state(pending, logSize int) {
	if m == nil {
		return
	}
	m.pendingEvents.Set(float64(pending))
	m.logSize.Set(float64(logSize))
}
