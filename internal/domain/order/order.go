package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusCompleted is the status given to every new order.
const StatusCompleted = "completed"

// Order is a stored customer order.
type Order struct {
	ID          string
	UserID      string
	Items       []Item
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Status      string
}

// Item is an order line as submitted by the storefront.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Qty       int
	Image     string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores o and assigns its ID.
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the orders of a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// Publisher announces created orders to downstream consumers.
type Publisher interface {
	OrderCreated(ctx context.Context, o *Order) error
}
