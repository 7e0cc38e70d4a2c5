package virustotal_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/testutil"
	"github.com/raysh454/shieldsuite/internal/virustotal"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *virustotal.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cfg := virustotal.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = ts.URL
	cfg.RequestsPerMinute = 0
	return virustotal.NewClient(cfg, &testutil.DummyLogger{}, ts.Client())
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ─── Reports ───────────────────────────────────────────────────────────

func TestFileReport_SendsKeyAndResource(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/file/report", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "abc123", r.URL.Query().Get("resource"))
		writeBody(w, map[string]any{
			"response_code": 1,
			"positives":     3,
			"total":         70,
			"scan_date":     "2024-01-01 00:00:00",
			"permalink":     "https://vt.example/abc123",
			"scans":         map[string]any{"EngineA": map[string]any{"detected": true, "result": "Trojan"}},
		})
	})

	rep, err := c.FileReport(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, rep.Found())
	assert.Equal(t, 3, rep.Positives)
	assert.Equal(t, 70, rep.Total)
	assert.True(t, rep.Scans["EngineA"].Detected)
}

func TestURLReport(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/url/report", r.URL.Path)
		writeBody(w, map[string]any{"response_code": 1, "positives": 0, "total": 90})
	})

	rep, err := c.URLReport(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, 90, rep.Total)
}

// ─── Submissions ───────────────────────────────────────────────────────

func TestScanURL_PostsForm(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/url/scan", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "test-key", r.PostForm.Get("apikey"))
		assert.Equal(t, "https://example.com", r.PostForm.Get("url"))
		writeBody(w, map[string]any{"response_code": 1, "scan_id": "scan-42"})
	})

	out, err := c.ScanURL(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "scan-42", out.ScanID)
}

func TestScanFile_UploadsMultipart(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/scan", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "sample.apk", hdr.Filename)
		assert.Equal(t, "PK\x03\x04", string(body))
		writeBody(w, map[string]any{"response_code": 1, "resource": "res-1"})
	})

	out, err := c.ScanFile(context.Background(), "sample.apk", []byte("PK\x03\x04"))
	require.NoError(t, err)
	assert.Equal(t, "res-1", out.Resource)
}

// ─── Lookup ────────────────────────────────────────────────────────────

func TestLookup_ReturnsDetections(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{"response_code": 1, "positives": 5, "total": 60})
	})

	det, err := c.Lookup(context.Background(), "id")
	require.NoError(t, err)
	assert.Equal(t, riskscore.Detections{Positives: 5, Total: 60}, det)
}

func TestLookup_UnknownResource(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{"response_code": 0, "verbose_msg": "not found"})
	})

	_, err := c.Lookup(context.Background(), "id")
	assert.ErrorIs(t, err, virustotal.ErrNotFound)
}

// ─── Errors ────────────────────────────────────────────────────────────

func TestClient_NoAPIKey(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	c := virustotal.NewClient(virustotal.Config{BaseURL: ts.URL}, nil, ts.Client())
	assert.False(t, c.Enabled())

	_, err := c.FileReport(context.Background(), "x")
	assert.ErrorIs(t, err, virustotal.ErrNoAPIKey)
	_, err = c.ScanFile(context.Background(), "a.apk", []byte("x"))
	assert.ErrorIs(t, err, virustotal.ErrNoAPIKey)
	assert.Equal(t, int32(0), hits.Load())
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()
	tests := map[int]error{
		http.StatusNoContent:       virustotal.ErrRateLimited,
		http.StatusTooManyRequests: virustotal.ErrRateLimited,
		http.StatusForbidden:       virustotal.ErrUnauthorized,
	}
	for status, want := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.FileReport(context.Background(), "x")
		assert.ErrorIs(t, err, want, "status %d", status)
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.FileReport(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_MalformedJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	})
	_, err := c.FileReport(context.Background(), "x")
	assert.Error(t, err)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{"response_code": 1})
	}))
	defer ts.Close()

	cfg := virustotal.Config{APIKey: "k", BaseURL: ts.URL, RequestsPerMinute: 1, Burst: 1}
	c := virustotal.NewClient(cfg, nil, ts.Client())

	_, err := c.FileReport(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FileReport(ctx, "second")
	assert.Error(t, err, "second call within the same minute must wait and hit the deadline")
}
