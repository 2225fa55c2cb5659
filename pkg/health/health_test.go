package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- Helpers ---

func pass(context.Context) error { return nil }

func fail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, h *Health, p Probe) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.Handler(p).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func pollN(h *Health, p Probe, idx, n int) {
	for range n {
		h.checks[p][idx].poll(context.Background())
	}
}

// --- Tests ---

func TestHandler_Liveness(t *testing.T) {
	tests := []struct {
		name     string
		polls    int
		wantCode int
		wantBody string
	}{
		{name: "starts healthy", polls: 0, wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "below threshold", polls: 2, wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name:     "at threshold",
			polls:    3,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"unhealthy","checks":{"mongo":"connection refused"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.Add(Liveness, Check{Name: "mongo", Run: fail("connection refused")})
			pollN(h, Liveness, 0, tt.polls)

			w := serve(t, h, Liveness)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHandler_ReadinessFlag(t *testing.T) {
	h := New()
	h.Add(Readiness, Check{Name: "redis", Run: pass})

	w := serve(t, h, Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(t, h, Readiness).Code)

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, Readiness).Code)
}

func TestReport_OnlyFailingChecksListed(t *testing.T) {
	h := New()
	h.Add(Readiness, Check{Name: "mongo", Run: pass})
	h.Add(Readiness, Check{Name: "backend", Run: fail("circuit open"), FailureThreshold: 1})
	h.SetReady(true)

	pollN(h, Readiness, 0, 1)
	pollN(h, Readiness, 1, 1)

	r := h.Report(Readiness)
	assert.False(t, r.OK())
	assert.Equal(t, []Failure{{Name: "backend", Error: "circuit open"}}, r.Failures)

	// Liveness is unaffected by readiness failures.
	assert.True(t, h.Report(Liveness).OK())
}

func TestCheck_Recovers(t *testing.T) {
	down := true
	h := New()
	h.Add(Liveness, Check{
		Name: "flaky",
		Run: func(context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		},
		SuccessThreshold: 2,
	})
	s := h.checks[Liveness][0]

	pollN(h, Liveness, 0, 3)
	assert.False(t, s.healthy.Load())
	assert.Equal(t, "down", s.failure())

	down = false
	s.poll(context.Background())
	assert.False(t, s.healthy.Load(), "one pass is below the success threshold")
	s.poll(context.Background())
	assert.True(t, s.healthy.Load())
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Readiness, Check{
		Name:             "slow",
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	h.SetReady(true)
	pollN(h, Readiness, 0, 1)

	r := h.Report(Readiness)
	require.Len(t, r.Failures, 1)
	assert.Contains(t, r.Failures[0].Error, "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Liveness, Check{Name: "goroutines", Run: GoroutineCountCheck(100000)})
	h.Add(Readiness, Check{Name: "mongo", Run: fail("down"), FailureThreshold: 1})
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !h.Report(Readiness).OK()
	}, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				serve(t, h, Liveness)
				serve(t, h, Readiness)
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck("redis", &mockPinger{})(context.Background()))

	err := PingCheck("redis", &mockPinger{err: errors.New("i/o timeout")})(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ping redis: i/o timeout", err.Error())
}

func TestRuntimeChecks(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds")

	assert.NoError(t, HeapCheck(1<<40)(context.Background()))
	assert.ErrorContains(t, HeapCheck(1)(context.Background()), "exceeds")
}

func TestProbeString(t *testing.T) {
	assert.Equal(t, "liveness", Liveness.String())
	assert.Equal(t, "readiness", Readiness.String())
}
