package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TooManyRequestsMessage is the body text of a rejected request.
const TooManyRequestsMessage = "Too many requests. Please slow down."

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window and key.
	Max    int
	Window time.Duration
	// KeyFunc groups requests; ClientIP when nil.
	KeyFunc func(*http.Request) string

	now func() time.Time
}

// window holds the counts of the current and the previous fixed window.
// The estimate for the sliding window weights the previous count by the
// part of it that still overlaps.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max    float64
	width  time.Duration
	now    func() time.Time
	keyFor func(*http.Request) string

	mu   sync.Mutex
	keys map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	l := &limiter{
		max:    float64(cfg.Max),
		width:  cfg.Window,
		now:    cfg.now,
		keyFor: cfg.KeyFunc,
		keys:   make(map[string]*window),
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.keyFor == nil {
		l.keyFor = ClientIP
	}
	return l
}

// take records one request for key unless the limit is reached. It returns
// the remaining budget and the end of the current window.
func (l *limiter) take(key string, now time.Time) (int, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.width)
	w, ok := l.keys[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.keys[key] = w
	case start.Sub(w.start) >= 2*l.width:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.curr}
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.width)
	used := w.prev*max(overlap, 0) + w.curr
	reset := w.start.Add(l.width)
	if used >= l.max {
		return 0, reset, false
	}
	w.curr++
	return max(int(l.max-used-1), 0), reset, true
}

// sweep drops keys idle for two windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.keys {
		if now.Sub(w.start) >= 2*l.width {
			delete(l.keys, k)
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(int(l.max))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.now()
		remaining, reset, ok := l.take(l.keyFor(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			wait := max(reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeMsg(w, http.StatusTooManyRequests, TooManyRequestsMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces a per-key sliding window limit. Idle keys are never
// evicted; long-running servers should use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a sweeper that evicts idle keys
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * l.width)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				l.sweep(t)
			}
		}
	}()
	return l.middleware
}

// ClientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CookieKey keys requests by the value of the named cookie and falls back
// to ClientIP for clients without it.
func CookieKey(name string) func(*http.Request) string {
	return func(r *http.Request) string {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return "cookie:" + c.Value
		}
		return ClientIP(r)
	}
}
