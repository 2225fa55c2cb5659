package app

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/events"
	"github.com/xenking/healthybite/internal/handler"
	"github.com/xenking/healthybite/internal/storage/mongo"
	"github.com/xenking/healthybite/pkg/health"
)

// RunAPI runs the api-server: user and order endpoints on MongoDB.
func RunAPI(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *APIConfig) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("database", cfg.MongoDatabase))

	db, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			lg.Warn("Mongo disconnect", zap.Error(err))
		}
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, health.Check{
		Name:    "mongo",
		Run:     health.PingCheck("mongo", mongo.NewPinger(db)),
		Timeout: 5 * time.Second,
	})
	healthSvc.Add(health.Liveness, health.Check{Name: "goroutines", Run: health.GoroutineCountCheck(10000)})

	var publisher order.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Kafka writer close", zap.Error(err))
			}
		}()
		publisher = kp
		lg.Info("Publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	users := user.NewService(mongo.NewUserRepository(db))
	orders := order.NewService(mongo.NewOrderRepository(db), publisher)

	h, err := handler.NewHandler(users, orders, m.MeterProvider().Meter("healthybite/api-server"))
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	r := chi.NewRouter()
	h.Register(r)

	st := stack{service: "healthybite-api", rateLimit: cfg.RateLimit, cors: cfg.CORS}
	server := newServer(cfg.Addr, st.handler(ctx, m, r, healthSvc), 10*time.Second)
	return serve(ctx, lg, server, healthSvc, cfg.Graceful)
}
