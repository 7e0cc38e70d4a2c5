package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/raysh454/shieldsuite/internal/metrics"
	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/testutil"
)

var errNoReport = errors.New("no report")

type missSource struct{}

func (missSource) Lookup(context.Context, string) (riskscore.Detections, error) {
	return riskscore.Detections{}, errNoReport
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveAssessment(&riskscore.Assessment{RiskLevel: riskscore.LevelLow})
	m.ObserveJob("done")
	m.Gauge("x", "x", func() float64 { return 1 })

	src := &testutil.DummyDetectionSource{}
	if metrics.InstrumentSource(src, nil, nil) != riskscore.DetectionSource(src) {
		t.Error("expected nil metrics to return the source unchanged")
	}
}

func TestInstrumentSource_CountsOutcomes(t *testing.T) {
	m := metrics.New()
	ctx := context.Background()

	hit := metrics.InstrumentSource(&testutil.DummyDetectionSource{}, m, errNoReport)
	fail := metrics.InstrumentSource(&testutil.DummyDetectionSource{FailAll: true}, m, errNoReport)
	miss := metrics.InstrumentSource(missSource{}, m, errNoReport)

	_, _ = hit.Lookup(ctx, "a")
	_, _ = hit.Lookup(ctx, "b")
	_, _ = fail.Lookup(ctx, "c")
	_, _ = miss.Lookup(ctx, "d")

	body := scrape(t, m)
	for _, want := range []string{
		`shieldsuite_detection_lookups_total{outcome="hit"} 2`,
		`shieldsuite_detection_lookups_total{outcome="error"} 1`,
		`shieldsuite_detection_lookups_total{outcome="miss"} 1`,
		`shieldsuite_detection_lookup_duration_seconds_count 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}

func TestObserveAssessmentAndGauge(t *testing.T) {
	m := metrics.New()
	m.ObserveAssessment(&riskscore.Assessment{RiskLevel: riskscore.LevelCritical})
	m.ObserveAssessment(&riskscore.Assessment{RiskLevel: riskscore.LevelCritical})
	m.Gauge("alert_subscribers", "Connected alert subscribers.", func() float64 { return 3 })

	n, err := promtest.GatherAndCount(m.Registry(), "shieldsuite_apk_assessments_total")
	if err != nil || n != 1 {
		t.Fatalf("expected one assessment series, got %d (%v)", n, err)
	}
	body := scrape(t, m)
	if !strings.Contains(body, `shieldsuite_apk_assessments_total{level="CRITICAL"} 2`) {
		t.Error("expected CRITICAL counter of 2")
	}
	if !strings.Contains(body, "shieldsuite_alert_subscribers 3") {
		t.Error("expected subscriber gauge")
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/alerts/{alertId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/123", nil))

	body := scrape(t, m)
	want := `shieldsuite_http_requests_total{method="GET",route="/api/alerts/{alertId}",status="418"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("expected %q in exposition:\n%s", want, body)
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	b, _ := io.ReadAll(rec.Body)
	return string(b)
}
