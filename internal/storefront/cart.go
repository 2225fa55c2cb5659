package storefront

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/healthybite/internal/domain/cart"
	"github.com/xenking/healthybite/internal/domain/catalog"
	"github.com/xenking/healthybite/internal/domain/checkout"
	"github.com/xenking/healthybite/internal/session"
)

// GetCart handles GET /cart.
func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, current(r).Cart)
}

// AddItem handles POST /cart/items. Price, name and image come from the
// catalog, never from the client.
func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := req.decode(data); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	line, err := s.catalog.Line(catalog.Selection{
		Kind:      req.Kind,
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeMsg(w, http.StatusNotFound, msgProductNotFound)
		return
	case errors.Is(err, catalog.ErrInvalidKind), errors.Is(err, catalog.ErrInvalidSize):
		writeMsg(w, http.StatusBadRequest, msgInvalidSelection)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}

	s.mutateCart(w, r, func(c *cart.Cart) { c.AddItem(line) })
}

// IncreaseQty handles POST /cart/items/{id}/increase.
func (s *Server) IncreaseQty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutateCart(w, r, func(c *cart.Cart) { c.IncreaseQty(id) })
}

// DecreaseQty handles POST /cart/items/{id}/decrease. The line is removed
// when its quantity would drop below one.
func (s *Server) DecreaseQty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutateCart(w, r, func(c *cart.Cart) { c.DecreaseQty(id) })
}

// RemoveItem handles DELETE /cart/items/{id}.
func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutateCart(w, r, func(c *cart.Cart) { c.RemoveItem(id) })
}

// ClearCart handles DELETE /cart.
func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	s.mutateCart(w, r, func(c *cart.Cart) { c.Clear() })
}

// mutateCart applies fn to the session cart and answers with the result.
// Unknown line ids leave the cart unchanged. The cart is frozen while a
// checkout of the session is in flight.
func (s *Server) mutateCart(w http.ResponseWriter, r *http.Request, fn func(*cart.Cart)) {
	sess, err := s.update(r.Context(), current(r).ID, func(sess *session.Session) error {
		if !sess.Authenticated() {
			return errLoggedOut
		}
		if s.flow.State(sess.ID) == checkout.StateSubmitting {
			return checkout.ErrInProgress
		}
		fn(sess.Cart)
		return nil
	})
	switch {
	case errors.Is(err, errLoggedOut):
		writeLoginRequired(w)
		return
	case errors.Is(err, checkout.ErrInProgress):
		writeMsg(w, http.StatusConflict, checkout.InProgressMessage)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}
	writeCart(w, sess.Cart)
}

// errLoggedOut reports that the user logged out in another request after
// the auth gate let this one through.
var errLoggedOut = errors.New("logged out")
