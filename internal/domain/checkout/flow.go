package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/domain/cart"
)

// Flow submits carts to the order service. A Flow is shared by all
// sessions; the key passed to Submit identifies the cart owner and at most
// one submission per key runs at a time.
type Flow struct {
	orders OrderCreator

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewFlow returns a Flow that creates orders through orders.
func NewFlow(orders OrderCreator) *Flow {
	return &Flow{
		orders:   orders,
		inflight: make(map[string]struct{}),
	}
}

// State reports StateSubmitting while a submission for key is in flight
// and StateIdle otherwise.
func (f *Flow) State(key string) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.inflight[key]; ok {
		return StateSubmitting
	}
	return StateIdle
}

// Submit runs one submission of c on behalf of who.
//
// An empty cart is ignored: the result is StateIdle with a nil error and no
// request is made. A missing identity yields ErrNotAuthenticated and a
// concurrent submission for the same key yields ErrInProgress, both in
// StateIdle. On success c is cleared and the result carries the receipt
// built from the pre-clear items. On failure c is left untouched and the
// error is a *SubmitError.
func (f *Flow) Submit(ctx context.Context, key string, c *cart.Cart, who *Identity) (*Submission, error) {
	if c.IsEmpty() {
		return &Submission{State: StateIdle}, nil
	}
	if who == nil || who.ID == "" {
		return &Submission{State: StateIdle}, ErrNotAuthenticated
	}

	if !f.acquire(key) {
		return &Submission{State: StateIdle}, ErrInProgress
	}
	defer f.release(key)

	snapshot := c.Snapshot()
	lg := zctx.From(ctx).With(
		zap.String("user_id", who.ID),
		zap.Int("items", snapshot.Len()),
		zap.Stringer("total_amount", snapshot.TotalAmount),
	)

	resp, err := f.orders.CreateOrder(ctx, NewOrderRequest(who.ID, snapshot))
	if err != nil {
		lg.Error("Order submission failed", zap.Error(err))
		return &Submission{State: StateFailed}, &SubmitError{Err: err}
	}

	c.Clear()

	lg.Info("Order submitted", zap.String("order_id", resp.OrderID))
	return &Submission{
		State: StateCompleted,
		Receipt: &Receipt{
			OrderID: resp.OrderID,
			Customer: Customer{
				Name:  who.Name,
				Email: who.Email,
				Phone: who.Phone,
			},
			Items:       snapshot.Items,
			TotalAmount: snapshot.TotalAmount,
		},
	}, nil
}

func (f *Flow) acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.inflight[key]; busy {
		return false
	}
	f.inflight[key] = struct{}{}
	return true
}

func (f *Flow) release(key string) {
	f.mu.Lock()
	delete(f.inflight, key)
	f.mu.Unlock()
}
