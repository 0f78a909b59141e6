package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/docchat-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained requests per second allowed for one
	// client against one scope.
	defaultRateLimit = 10
	// defaultRateBurst is the bucket size for one client against one scope.
	defaultRateBurst = 20
	// bucketIdle is how long an unused bucket survives before a sweep drops it.
	bucketIdle = 5 * time.Minute
	// sweepInterval is how often idle buckets are collected.
	sweepInterval = time.Minute
)

// bucketKey identifies a token bucket. Upload and query traffic is metered
// per client and per scope, so a client hammering one scope does not lock
// itself out of another.
type bucketKey struct {
	client string
	scope  string
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// throttle meters the expensive scope routes with one token bucket per
// bucketKey.
type throttle struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	limit   rate.Limit
	burst   int

	// rejected is called once for every request turned away. It may be nil.
	rejected func(r *http.Request)
}

func newThrottle(perSecond float64, burst int) *throttle {
	return &throttle{
		buckets: make(map[bucketKey]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

// start launches the idle-bucket sweeper. The returned func stops it.
func (t *throttle) start() func() {
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(sweepInterval)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-tick.C:
				t.sweep(now)
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// take spends one token from the bucket for k at now. When the bucket is
// empty it returns false and the wait until a token is available.
func (t *throttle) take(k bucketKey, now time.Time) (bool, time.Duration) {
	t.mu.Lock()
	b, ok := t.buckets[k]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[k] = b
	}
	b.seen = now
	t.mu.Unlock()

	res := b.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	wait := res.DelayFrom(now)
	if wait == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, wait
}

// sweep drops buckets not used since now-bucketIdle and reports how many
// remain.
func (t *throttle) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := now.Add(-bucketIdle)
	for k, b := range t.buckets {
		if b.seen.Before(cutoff) {
			delete(t.buckets, k)
		}
	}
	return len(t.buckets)
}

// wrap meters next. It must sit below the mux so the scope path value is
// populated.
func (t *throttle) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k := bucketKey{client: remoteHost(r), scope: r.PathValue("id")}
		ok, wait := t.take(k, time.Now())
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		logging.FromContext(r.Context()).Warn("rate limit exceeded",
			slog.String("client", k.client),
			slog.String("scope", k.scope),
			slog.Duration("retry_after", wait),
		)
		if t.rejected != nil {
			t.rejected(r)
		}
		w.Header().Set("Retry-After", retryAfter(wait))
		writeJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	})
}

// retryAfter renders wait as whole seconds, never less than one.
func retryAfter(wait time.Duration) string {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// remoteHost returns the host part of RemoteAddr. Forwarding headers are
// ignored.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
