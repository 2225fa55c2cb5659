package storefront

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/healthybite/internal/domain/checkout"
	"github.com/xenking/healthybite/internal/session"
)

// Checkout handles POST /checkout.
//
// The order is built from the cart as stored when checkout starts. The
// session lock is not held during the create-order call; instead cart
// changes answer 409 while the submission is in flight, as does a second
// checkout. After a successful order the ordered lines are removed from the
// cart and the receipt is stored under the lock.
//
// Responses: 200 {"state":"idle"} for an empty cart,
// 200 {"state":"completed","orderId":...}, 409 while another checkout runs,
// 502 {"state":"failed","msg":...} when the order service failed.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.load(ctx, current(r).ID)
	if err != nil {
		serverError(w, r, err)
		return
	}

	sub, err := s.flow.Submit(ctx, sess.ID, sess.Cart, sess.User)
	switch {
	case errors.Is(err, checkout.ErrNotAuthenticated):
		s.countCheckout(r, "unauthenticated")
		writeLoginRequired(w)
		return
	case errors.Is(err, checkout.ErrInProgress):
		s.countCheckout(r, "in_progress")
		writeMsg(w, http.StatusConflict, checkout.UserMessage(err))
		return
	case err != nil:
		s.countCheckout(r, "failed")
		writeState(w, http.StatusBadGateway, checkout.StateFailed, "", checkout.UserMessage(err))
		return
	}

	if sub.State != checkout.StateCompleted {
		writeState(w, http.StatusOK, sub.State, "", "")
		return
	}
	s.countCheckout(r, "completed")

	if _, err := s.update(ctx, sess.ID, func(fresh *session.Session) error {
		fresh.Cart.Settle(sub.Receipt.Items)
		fresh.Receipt = sub.Receipt
		return nil
	}); err != nil {
		// The order exists; only the hand-off to the receipt view is lost.
		serverError(w, r, errors.Wrapf(err, "store receipt for order %s", sub.Receipt.OrderID))
		return
	}
	writeState(w, http.StatusOK, sub.State, sub.Receipt.OrderID, "")
}

// Receipt handles GET /receipt. The receipt is handed out once; without a
// pending receipt the answer is the {"status":"loading"} placeholder.
func (s *Server) Receipt(w http.ResponseWriter, r *http.Request) {
	var receipt *checkout.Receipt
	if _, err := s.update(r.Context(), current(r).ID, func(sess *session.Session) error {
		receipt = sess.TakeReceipt()
		return nil
	}); err != nil {
		serverError(w, r, err)
		return
	}

	var e jx.Encoder
	if receipt == nil {
		e.Obj(func(e *jx.Encoder) {
			e.Field("status", func(e *jx.Encoder) { e.Str("loading") })
		})
	} else {
		encodeReceipt(&e, receipt)
	}
	writeRaw(w, http.StatusOK, &e)
}

func (s *Server) countCheckout(r *http.Request, outcome string) {
	s.checkouts.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func writeState(w http.ResponseWriter, status int, st checkout.State, orderID, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("state", func(e *jx.Encoder) { e.Str(st.String()) })
		if orderID != "" {
			e.Field("orderId", func(e *jx.Encoder) { e.Str(orderID) })
		}
		if msg != "" {
			e.Field("msg", func(e *jx.Encoder) { e.Str(msg) })
		}
	})
	writeRaw(w, status, &e)
}
