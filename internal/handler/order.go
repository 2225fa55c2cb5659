package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/orderapi"
)

// CreateOrder handles POST /createOrder. Each call stores a new order; the
// endpoint has no idempotency key.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderapi.CreateOrderRequest
	if !readJSON(w, r, &req) {
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Qty:       it.Qty,
			Image:     it.Image,
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:      req.UserID,
		Items:       items,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		mapOrderError(w, r, err)
		return
	}

	h.ordersCreated.Add(r.Context(), 1)
	zctx.From(r.Context()).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
	)
	writeJSON(w, http.StatusCreated, &orderapi.CreateOrderResponse{OrderID: o.ID, Msg: order.MsgSaved})
}

// ListOrders handles GET /orders/{userId}.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}

	resp := orderapi.OrdersResponse{Orders: make([]orderapi.Order, len(orders))}
	for i, o := range orders {
		items := make([]orderapi.OrderItem, len(o.Items))
		for j, it := range o.Items {
			items[j] = orderapi.OrderItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.Price,
				Qty:       it.Qty,
				Image:     it.Image,
			}
		}
		resp.Orders[i] = orderapi.Order{
			ID:          o.ID,
			UserID:      o.UserID,
			Items:       items,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
			Status:      o.Status,
		}
	}
	writeJSON(w, http.StatusOK, &resp)
}

// mapOrderError converts order domain errors to responses.
func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrInvalidOrder) {
		writeMsg(w, http.StatusBadRequest, order.MsgInvalidOrder)
		return
	}
	serverError(w, r, err)
}
