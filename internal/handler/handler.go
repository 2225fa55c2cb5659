// Package handler serves the api-server REST endpoints.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/orderapi"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

const (
	msgInvalidBody = "Invalid request body."
	msgServerError = "Server error."
)

// Handler serves user and order endpoints.
type Handler struct {
	users  *user.Service
	orders *order.Service

	ordersCreated metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(users *user.Service, orders *order.Service, meter metric.Meter) (*Handler, error) {
	created, err := meter.Int64Counter("healthybite.orders.created",
		metric.WithDescription("Orders persisted by the api-server"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	return &Handler{
		users:         users,
		orders:        orders,
		ordersCreated: created,
	}, nil
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registerUser", h.RegisterUser)
	r.Post("/login", h.Login)
	r.Get("/getProfiles", h.GetProfiles)
	r.Post("/updateProfile", h.UpdateProfile)
	r.Delete("/delUser/{uid}", h.DeleteUser)

	r.Post("/createOrder", h.CreateOrder)
	r.Get("/orders/{userId}", h.ListOrders)
}

type encoder interface{ Encode(*jx.Encoder) }

type decoder interface{ Decode(*jx.Decoder) error }

func writeJSON(w http.ResponseWriter, status int, v encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(orderapi.Marshal(v))
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &orderapi.Message{Msg: msg})
}

// readJSON decodes the request body into v, answering 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v decoder) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		err = orderapi.Unmarshal(data, v)
	}
	if err != nil {
		zctx.From(r.Context()).Debug("Invalid request body", zap.Error(err))
		writeMsg(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// serverError logs err and answers 500.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeMsg(w, http.StatusInternalServerError, msgServerError)
}
