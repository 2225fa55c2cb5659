// Package checkout runs the order submission flow: it sends the cart to the
// order service, clears the cart on success and produces the receipt that
// the customer sees next.
//
// Submission is single-attempt and carries no idempotency key. Retrying
// after a transport failure whose request actually reached the order
// service creates a second order.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/healthybite/internal/domain/cart"
	"github.com/xenking/healthybite/internal/orderapi"
)

// State is the position of a submission in the flow.
type State int

const (
	// StateIdle means no submission was started.
	StateIdle State = iota
	// StateSubmitting means the create-order call is in flight.
	StateSubmitting
	// StateCompleted means the order was created and the cart cleared.
	StateCompleted
	// StateFailed means the create-order call failed; the cart is unchanged.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrNotAuthenticated is returned when no user identity is available.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInProgress is returned when a submission for the same cart is
	// already in flight.
	ErrInProgress = errors.New("order submission already in progress")
)

// Customer-facing messages.
const (
	LoginRequiredMessage = "You must be logged in to place an order."
	InProgressMessage    = "Your order is already being submitted."
	FailureMessage       = "Failed to submit order. Please try again."
)

// UserMessage returns the customer-facing text for an error returned by
// Submit.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return LoginRequiredMessage
	case errors.Is(err, ErrInProgress):
		return InProgressMessage
	default:
		return FailureMessage
	}
}

// SubmitError wraps a create-order failure.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "create order: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Identity is the authenticated user consumed by the flow. An empty ID
// means not authenticated.
type Identity struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Customer holds the contact details printed on a receipt.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Receipt is the order snapshot handed to the receipt view. Items are the
// cart contents at submission time, not the cleared cart.
type Receipt struct {
	OrderID     string          `json:"orderId,omitempty"`
	Customer    Customer        `json:"customer"`
	Items       []cart.Item     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Submission is the outcome of one Submit call.
type Submission struct {
	State   State
	Receipt *Receipt
}

// OrderCreator is the remote create-order call.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req orderapi.CreateOrderRequest) (*orderapi.CreateOrderResponse, error)
}

// NewOrderRequest builds the create-order body from a cart.
func NewOrderRequest(userID string, c *cart.Cart) orderapi.CreateOrderRequest {
	items := make([]orderapi.Item, len(c.Items))
	for i, it := range c.Items {
		items[i] = orderapi.Item{
			ID:    it.ID,
			Name:  it.Name,
			Price: it.Price,
			Qty:   it.Qty,
			Image: it.Image,
		}
	}
	return orderapi.CreateOrderRequest{
		UserID:      userID,
		Items:       items,
		TotalAmount: c.TotalAmount,
	}
}
