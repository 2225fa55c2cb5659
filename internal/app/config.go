package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// APIConfig configures the api-server. Values come from HB_-prefixed
// environment variables, flags, or api-server.yaml.
type APIConfig struct {
	Addr          string `default:"0.0.0.0:3002" usage:"API server listen address"`
	MongoURI      string `usage:"MongoDB connection URI (HB_MONGO_URI or MONGODB_URI)" flag:"mongo-uri"`
	MongoDatabase string `default:"healthybite" usage:"MongoDB database name" flag:"mongo-database"`
	Kafka         KafkaConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// KafkaConfig controls order event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers for order events"`
	Topic   string   `default:"healthybite.orders" usage:"Order events topic"`
}

// StorefrontConfig configures the storefront. Values come from
// HB_-prefixed environment variables, flags, or storefront.yaml.
type StorefrontConfig struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"Storefront listen address"`
	BackendURL     string        `default:"http://localhost:3002" usage:"api-server base URL" flag:"backend-url"`
	BackendTimeout time.Duration `default:"10s" usage:"Timeout of one api-server request" flag:"backend-timeout"`
	RedisURL       string        `usage:"Redis URL for sessions (HB_REDIS_URL or REDIS_URL); empty keeps sessions in memory" flag:"redis-url"`
	SessionTTL     time.Duration `default:"24h" usage:"Idle session lifetime" flag:"session-ttl"`
	CookieSecure   bool          `default:"false" usage:"Mark the session cookie Secure" flag:"cookie-secure"`
	Breaker        BreakerConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// BreakerConfig controls the circuit breaker in front of the api-server.
type BreakerConfig struct {
	MaxFailures uint32        `default:"5" usage:"Consecutive failures that open the breaker"`
	OpenTimeout time.Duration `default:"30s" usage:"Time the breaker stays open"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadAPIConfig loads the api-server configuration.
func LoadAPIConfig() (*APIConfig, error) {
	var cfg APIConfig
	if err := load(&cfg, "api-server"); err != nil {
		return nil, err
	}
	cfg.MongoURI = firstNonEmpty(cfg.MongoURI, os.Getenv("MONGODB_URI"))
	cfg.Addr = platformAddr(cfg.Addr, "0.0.0.0:3002")

	if cfg.MongoURI == "" {
		return nil, errors.New("MongoDB URI is required: set HB_MONGO_URI or MONGODB_URI")
	}
	return &cfg, nil
}

// LoadStorefrontConfig loads the storefront configuration.
func LoadStorefrontConfig() (*StorefrontConfig, error) {
	var cfg StorefrontConfig
	if err := load(&cfg, "storefront"); err != nil {
		return nil, err
	}
	cfg.RedisURL = firstNonEmpty(cfg.RedisURL, os.Getenv("REDIS_URL"))
	cfg.Addr = platformAddr(cfg.Addr, "0.0.0.0:8080")

	if !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return nil, errors.Errorf("backend URL %q must be http or https", cfg.BackendURL)
	}
	return &cfg, nil
}

func load(dst any, name string) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "HB",
		Files:     []string{name + ".yaml", "/etc/healthybite/" + name + ".yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrapf(err, "load %s config", name)
	}
	return nil
}

// platformAddr applies the PORT variable set by hosting platforms unless
// the address was configured explicitly.
func platformAddr(addr, def string) string {
	if port := os.Getenv("PORT"); port != "" && addr == def {
		return "0.0.0.0:" + port
	}
	return addr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
