// Package app wires the HealthyBite servers: it builds dependencies from
// configuration, assembles the middleware stack and runs the HTTP server
// until the context is canceled.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/pkg/health"
	"github.com/xenking/healthybite/pkg/httpmiddleware"
)

// stack describes the shared middleware chain of a server.
type stack struct {
	service      string
	rateLimit    RateLimitConfig
	rateLimitKey func(*http.Request) string
	cors         CORSConfig
}

// handler mounts the probes on r and wraps it in the middleware chain.
func (s stack) handler(ctx context.Context, m *app.Telemetry, r chi.Router, h *health.Health) http.Handler {
	r.Get("/livez", h.Handler(health.Liveness))
	r.Get("/readyz", h.Handler(health.Readiness))

	routeFinder := httpmiddleware.MakeRouteFinder(r)
	return httpmiddleware.Wrap(r,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     s.cors.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: s.cors.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     s.rateLimit.Max,
			Window:  s.rateLimit.Window,
			KeyFunc: s.rateLimitKey,
		}),
		httpmiddleware.Instrument(s.service, routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}

// serve runs server until ctx is done, then flips readiness, waits for the
// load balancer to notice and drains in-flight requests.
func serve(ctx context.Context, lg *zap.Logger, server *http.Server, h *health.Health, cfg GracefulConfig) error {
	h.Start(ctx, 10*time.Second)
	h.SetReady(true)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		h.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
		time.Sleep(cfg.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		h.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func newServer(addr string, h http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              addr,
		Handler:           h,
	}
}
