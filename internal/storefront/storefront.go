// Package storefront serves the customer-facing JSON API: menus, the
// per-session cart, login and checkout.
package storefront

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/healthybite/internal/domain/catalog"
	"github.com/xenking/healthybite/internal/domain/checkout"
	"github.com/xenking/healthybite/internal/orderapi"
	"github.com/xenking/healthybite/internal/session"
)

// DefaultCookieName is the session cookie.
const DefaultCookieName = "hb_session"

// Authenticator checks customer credentials against the user service.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*orderapi.User, error)
}

// Config holds the storefront HTTP settings.
type Config struct {
	CookieName   string
	CookieSecure bool
	// SessionTTL is advertised as the cookie Max-Age.
	SessionTTL time.Duration
}

// Deps are the collaborators of a Server.
type Deps struct {
	Catalog  *catalog.Catalog
	Sessions session.Store
	Auth     Authenticator
	Orders   checkout.OrderCreator
}

// Server holds the storefront handlers.
type Server struct {
	cfg      Config
	catalog  *catalog.Catalog
	sessions session.Store
	auth     Authenticator
	flow     *checkout.Flow
	locks    *keyedMutex

	checkouts metric.Int64Counter
}

// NewServer creates a Server.
func NewServer(cfg Config, deps Deps, meter metric.Meter) (*Server, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}

	checkouts, err := meter.Int64Counter("healthybite.checkout.submissions",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "checkout counter")
	}

	return &Server{
		cfg:       cfg,
		catalog:   deps.Catalog,
		sessions:  deps.Sessions,
		auth:      deps.Auth,
		flow:      checkout.NewFlow(deps.Orders),
		locks:     newKeyedMutex(),
		checkouts: checkouts,
	}, nil
}

// Register mounts the storefront routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/catalog/meals", s.ListMeals)
	r.Get("/catalog/drinks", s.ListDrinks)

	r.Group(func(r chi.Router) {
		r.Use(s.attach)
		r.Post("/login", s.Login)
		r.Post("/logout", s.Logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Get("/cart", s.GetCart)
			r.Delete("/cart", s.ClearCart)
			r.Post("/cart/items", s.AddItem)
			r.Post("/cart/items/{id}/increase", s.IncreaseQty)
			r.Post("/cart/items/{id}/decrease", s.DecreaseQty)
			r.Delete("/cart/items/{id}", s.RemoveItem)
			r.Post("/checkout", s.Checkout)
			r.Get("/receipt", s.Receipt)
		})
	})
}
