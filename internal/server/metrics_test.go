package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

// findMetric returns the first metric in family name whose labels include
// every pair in want, or nil.
func findMetric(t *testing.T, ts *testServer, name string, want map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := ts.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(want) {
				return m
			}
		}
	}
	return nil
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("want 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "docchat_query_in_flight") {
		t.Error("exposition does not include docchat_query_in_flight")
	}
}

func Test_Metrics_QueryCounterIncremented(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	id := ts.createScope(t, "")

	if w := ts.query(t, id, "hello"); w.Code != http.StatusOK {
		t.Fatalf("query: %d", w.Code)
	}
	if w := ts.query(t, id, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("empty query: %d", w.Code)
	}

	ok := findMetric(t, ts, "docchat_query_requests_total", map[string]string{"outcome": "ok"})
	if ok == nil || ok.GetCounter().GetValue() != 1 {
		t.Errorf("docchat_query_requests_total{outcome=\"ok\"} = %v, want 1", ok)
	}
	failed := findMetric(t, ts, "docchat_query_requests_total", map[string]string{"outcome": "error"})
	if failed == nil || failed.GetCounter().GetValue() != 1 {
		t.Errorf("docchat_query_requests_total{outcome=\"error\"} = %v, want 1", failed)
	}
}

func Test_Metrics_UploadCounters(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	id := ts.createScope(t, "")
	ts.upload(t, id, map[string]string{
		"sky.txt":   "The sky is blue. Grass is green.",
		"notes.rtf": "{\\rtf1}",
	})

	for outcome, want := range map[string]float64{"ok": 1, "error": 1} {
		m := findMetric(t, ts, "docchat_upload_files_total", map[string]string{"outcome": outcome})
		if m == nil || m.GetCounter().GetValue() != want {
			t.Errorf("docchat_upload_files_total{outcome=%q} = %v, want %v", outcome, m, want)
		}
	}
	chunks := findMetric(t, ts, "docchat_upload_chunks_total", nil)
	if chunks == nil || chunks.GetCounter().GetValue() != 2 {
		t.Errorf("docchat_upload_chunks_total = %v, want 2", chunks)
	}
}

func Test_Metrics_HTTPLabelledByPattern(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/scopes/abc", nil, "")
	ts.do(t, http.MethodGet, "/no/such/route", nil, "")

	m := findMetric(t, ts, "docchat_http_requests_total", map[string]string{
		"handler": "GET /api/scopes/{id}",
		"code":    "404",
	})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("pattern-labelled request counter = %v, want 1", m)
	}
	if findMetric(t, ts, "docchat_http_requests_total", map[string]string{"handler": unmatchedHandler}) == nil {
		t.Error("unmatched route not counted")
	}
}

func Test_Metrics_RateLimitedCounter(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})
	id := ts.createScope(t, "")
	ts.query(t, id, "first")
	ts.query(t, id, "second")
	ts.query(t, id, "third")

	m := findMetric(t, ts, "docchat_http_rate_limited_total", map[string]string{
		"handler": "POST /api/scopes/{id}/query",
	})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("docchat_http_rate_limited_total = %v, want 2", m)
	}
}
