package app

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/backend"
	"github.com/xenking/healthybite/internal/domain/catalog"
	"github.com/xenking/healthybite/internal/session"
	"github.com/xenking/healthybite/internal/storefront"
	"github.com/xenking/healthybite/pkg/health"
	"github.com/xenking/healthybite/pkg/httpmiddleware"
)

// RunStorefront runs the storefront: menus, sessions and checkout against
// the api-server.
func RunStorefront(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *StorefrontConfig) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("backend", cfg.BackendURL))

	healthSvc := health.New()
	healthSvc.Add(health.Liveness, health.Check{Name: "goroutines", Run: health.GoroutineCountCheck(10000)})

	var sessions session.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		store := session.NewRedisStore(rdb, cfg.SessionTTL)
		healthSvc.Add(health.Readiness, health.Check{
			Name:    "redis",
			Run:     health.PingCheck("redis", store),
			Timeout: 2 * time.Second,
		})
		sessions = store
		lg.Info("Sessions in Redis", zap.String("addr", opts.Addr))
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		lg.Warn("Sessions in memory; they are lost on restart")
	}

	client, err := backend.New(backend.Options{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, lg.Named("backend"))
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}
	healthSvc.Add(health.Readiness, health.Check{
		Name:             "api-server",
		Run:              health.PingCheck("api-server", client),
		Timeout:          cfg.BackendTimeout,
		FailureThreshold: 5,
	})

	s, err := storefront.NewServer(storefront.Config{
		CookieSecure: cfg.CookieSecure,
		SessionTTL:   cfg.SessionTTL,
	}, storefront.Deps{
		Catalog:  catalog.Default(),
		Sessions: sessions,
		Auth:     client,
		Orders:   client,
	}, m.MeterProvider().Meter("healthybite/storefront"))
	if err != nil {
		return errors.Wrap(err, "create storefront")
	}

	r := chi.NewRouter()
	s.Register(r)

	st := stack{
		service:      "healthybite-storefront",
		rateLimit:    cfg.RateLimit,
		rateLimitKey: httpmiddleware.CookieKey(storefront.DefaultCookieName),
		cors:         cfg.CORS,
	}
	// Checkout waits for the api-server, so writes may take a full backend timeout.
	server := newServer(cfg.Addr, st.handler(ctx, m, r, healthSvc), cfg.BackendTimeout+5*time.Second)
	return serve(ctx, lg, server, healthSvc, cfg.Graceful)
}
