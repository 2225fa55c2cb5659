// Package health serves liveness and readiness probes.
//
// Every check is polled in the background and its result is cached; probe
// endpoints only read the cache. A check flips to unhealthy after
// FailureThreshold consecutive errors and back after SuccessThreshold
// consecutive passes.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc reports the health of one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Probe selects which endpoint a check contributes to.
type Probe int

const (
	// Liveness checks decide whether the process should be restarted.
	Liveness Probe = iota
	// Readiness checks decide whether the process receives traffic.
	Readiness
)

func (p Probe) String() string {
	if p == Readiness {
		return "readiness"
	}
	return "liveness"
}

// Check describes one registered check.
type Check struct {
	Name    string
	Run     CheckFunc
	Timeout time.Duration // defaults to 1s

	FailureThreshold int // defaults to 3
	SuccessThreshold int // defaults to 1
}

// state is the cached outcome of a check. poll is only called from the
// check's own goroutine; the atomics are read by the endpoints.
type state struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	fails  int
	passes int
}

func newState(c Check) *state {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	s := &state{Check: c}
	s.healthy.Store(true)
	return s
}

func (s *state) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		msg := err.Error()
		s.lastErr.Store(&msg)
		s.passes = 0
		s.fails++
		if s.fails >= s.FailureThreshold {
			s.healthy.Store(false)
		}
		return
	}

	s.lastErr.Store(nil)
	s.fails = 0
	s.passes++
	if s.passes >= s.SuccessThreshold {
		s.healthy.Store(true)
	}
}

func (s *state) failure() string {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return "check is unhealthy"
}

// Health holds the registered checks of one process.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Probe][]*state
	cancel context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{checks: make(map[Probe][]*state)}
}

// Add registers c for probe p. Checks must be added before Start.
func (h *Health) Add(p Probe, c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[p] = append(h.checks[p], newState(c))
}

// Start polls every registered check each interval until Stop is called or
// ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	var all []*state
	for _, list := range h.checks {
		all = append(all, list...)
	}
	h.mu.Unlock()

	for _, s := range all {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			s.poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.poll(ctx)
				}
			}
		}()
	}
}

// Stop halts polling. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady toggles the manual readiness flag. Shutdown clears it so the
// load balancer drains the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Failure is one unhealthy check in a Report.
type Failure struct {
	Name  string
	Error string
}

// Report is the probe result served by Handler.
type Report struct {
	Failures []Failure
}

// OK reports whether no check failed.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Report returns the current result for probe p. Readiness also fails while
// the manual flag is cleared.
func (h *Health) Report(p Probe) Report {
	h.mu.RLock()
	list := slices.Clone(h.checks[p])
	h.mu.RUnlock()

	var r Report
	if p == Readiness && !h.ready.Load() {
		r.Failures = append(r.Failures, Failure{Name: "_readiness", Error: "service is not ready"})
	}
	for _, s := range list {
		if !s.healthy.Load() {
			r.Failures = append(r.Failures, Failure{Name: s.Name, Error: s.failure()})
		}
	}
	slices.SortFunc(r.Failures, func(a, b Failure) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return r
}

// Handler serves probe p: 200 {"status":"ok"} or
// 503 {"status":"unhealthy","checks":{name:error}}.
func (h *Health) Handler(p Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		r := h.Report(p)

		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("status")
		status := http.StatusOK
		if r.OK() {
			e.Str("ok")
		} else {
			status = http.StatusServiceUnavailable
			e.Str("unhealthy")
			e.FieldStart("checks")
			e.ObjStart()
			for _, f := range r.Failures {
				e.FieldStart(f.Name)
				e.Str(f.Error)
			}
			e.ObjEnd()
		}
		e.ObjEnd()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(e.Bytes())
	}
}
