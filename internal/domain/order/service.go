package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Messages returned to API clients.
const (
	MsgInvalidOrder = "User and items are required."
	MsgSaved        = "Order saved."
)

// ErrInvalidOrder is returned when the user id or the items are missing.
var ErrInvalidOrder = errors.New("user and items are required")

// CreateRequest holds the input for creating an order. Totals are taken as
// submitted; the storefront cart is the source of truth for pricing.
type CreateRequest struct {
	UserID      string
	Items       []Item
	TotalAmount decimal.Decimal
}

// Service encapsulates order creation and lookup.
type Service struct {
	orders Repository
	events Publisher
	now    func() time.Time
}

// NewService creates an order Service. events may be nil.
func NewService(orders Repository, events Publisher) *Service {
	return &Service{
		orders: orders,
		events: events,
		now:    time.Now,
	}
}

// Create persists a new completed order and publishes an order-created
// event. A publish failure is logged and does not fail the call.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if req.UserID == "" || len(req.Items) == 0 {
		return nil, ErrInvalidOrder
	}

	o := &Order{
		UserID:      req.UserID,
		Items:       append([]Item(nil), req.Items...),
		TotalAmount: req.TotalAmount,
		CreatedAt:   s.now().UTC(),
		Status:      StatusCompleted,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if s.events != nil {
		if err := s.events.OrderCreated(ctx, o); err != nil {
			zctx.From(ctx).Warn("Publish order event",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	}

	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, ErrInvalidOrder
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
