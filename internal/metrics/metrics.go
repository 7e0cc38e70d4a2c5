// Package metrics exposes Prometheus collectors for the security suite.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raysh454/shieldsuite/internal/riskscore"
)

const namespace = "shieldsuite"

// Lookup outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	assessments    *prometheus.CounterVec
	lookups        *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	jobs           *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		assessments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apk_assessments_total",
			Help:      "APK risk assessments by resulting risk level.",
		}, []string{"level"}),
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_lookups_total",
			Help:      "External detection lookups by outcome.",
		}, []string{"outcome"}),
		lookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_lookup_duration_seconds",
			Help:      "Latency of external detection lookups.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_jobs_total",
			Help:      "Finished bulk scan jobs by final status.",
		}, []string{"status"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAssessment counts one assessment.
func (m *Metrics) ObserveAssessment(a *riskscore.Assessment) {
	if m == nil || a == nil {
		return
	}
	m.assessments.WithLabelValues(a.RiskLevel.String()).Inc()
}

// ObserveJob counts a finished job.
func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type instrumentedSource struct {
	next     riskscore.DetectionSource
	m        *Metrics
	notFound error
}

// InstrumentSource wraps a detection source so every lookup is counted and
// timed. notFound classifies errors that mean "no report" rather than failure.
func InstrumentSource(src riskscore.DetectionSource, m *Metrics, notFound error) riskscore.DetectionSource {
	if m == nil || src == nil {
		return src
	}
	return &instrumentedSource{next: src, m: m, notFound: notFound}
}

func (s *instrumentedSource) Lookup(ctx context.Context, id string) (riskscore.Detections, error) {
	start := time.Now()
	det, err := s.next.Lookup(ctx, id)
	s.m.lookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		s.m.lookups.WithLabelValues(OutcomeHit).Inc()
	case s.notFound != nil && errors.Is(err, s.notFound):
		s.m.lookups.WithLabelValues(OutcomeMiss).Inc()
	default:
		s.m.lookups.WithLabelValues(OutcomeError).Inc()
	}
	return det, err
}
