package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func throttledRequest(remote, scope string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/scopes/"+scope+"/query", nil)
	req.RemoteAddr = remote
	req.SetPathValue("id", scope)
	return req
}

func TestThrottle_BurstThenReject(t *testing.T) {
	t.Parallel()

	th := newThrottle(0.001, 2)
	var rejected int
	th.rejected = func(*http.Request) { rejected++ }
	h := th.wrap(okHandler)

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i, code := range want {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, throttledRequest("10.0.0.1:5000", "alpha"))
		if w.Code != code {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, code)
		}
	}
	if rejected != 1 {
		t.Errorf("rejected callback ran %d times, want 1", rejected)
	}
}

func TestThrottle_RetryAfter(t *testing.T) {
	t.Parallel()

	h := newThrottle(0.5, 1).wrap(okHandler)
	h.ServeHTTP(httptest.NewRecorder(), throttledRequest("10.0.0.1:5000", "alpha"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, throttledRequest("10.0.0.1:5001", "alpha"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	// One token every two seconds.
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}

func TestThrottle_KeyedByClientAndScope(t *testing.T) {
	t.Parallel()

	h := newThrottle(0.001, 1).wrap(okHandler)
	h.ServeHTTP(httptest.NewRecorder(), throttledRequest("10.0.0.1:5000", "alpha"))

	tests := []struct {
		name   string
		remote string
		scope  string
		want   int
	}{
		{"same client same scope", "10.0.0.1:6000", "alpha", http.StatusTooManyRequests},
		{"same client other scope", "10.0.0.1:6000", "beta", http.StatusNoContent},
		{"other client same scope", "10.0.0.2:6000", "alpha", http.StatusNoContent},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, throttledRequest(tc.remote, tc.scope))
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestThrottle_RejectedRequestKeepsToken(t *testing.T) {
	t.Parallel()

	th := newThrottle(1, 1)
	k := bucketKey{client: "10.0.0.1", scope: "alpha"}
	now := time.Now()

	if ok, _ := th.take(k, now); !ok {
		t.Fatal("first take should succeed")
	}
	if ok, wait := th.take(k, now); ok || wait <= 0 {
		t.Fatalf("second take = (%v, %v), want rejection with a wait", ok, wait)
	}
	// The rejected reservation was cancelled, so a full second later the
	// bucket holds exactly one token again.
	if ok, _ := th.take(k, now.Add(time.Second)); !ok {
		t.Error("take after refill should succeed")
	}
}

func TestThrottle_Sweep(t *testing.T) {
	t.Parallel()

	th := newThrottle(1, 1)
	now := time.Now()
	th.take(bucketKey{client: "a", scope: "s"}, now.Add(-2*bucketIdle))
	th.take(bucketKey{client: "b", scope: "s"}, now)

	if left := th.sweep(now); left != 1 {
		t.Errorf("sweep left %d buckets, want 1", left)
	}
}

func TestThrottle_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	stop := newThrottle(1, 1).start()
	stop()
	stop()
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()
	cases := map[time.Duration]string{
		0:                       "1",
		300 * time.Millisecond:  "1",
		time.Second:             "1",
		1500 * time.Millisecond: "2",
		90 * time.Second:        "90",
	}
	for wait, want := range cases {
		if got := retryAfter(wait); got != want {
			t.Errorf("retryAfter(%v) = %q, want %q", wait, got, want)
		}
	}
}

func TestRemoteHost(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"192.168.1.1:8080": "192.168.1.1",
		"[::1]:9000":       "::1",
		"unix-socket":      "unix-socket",
	}
	for addr, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if got := remoteHost(req); got != want {
			t.Errorf("remoteHost(%q) = %q, want %q", addr, got, want)
		}
	}
}
