package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/healthybite/internal/orderapi"
)

func newTestClient(t *testing.T, url string, opts Options) *Client {
	t.Helper()
	opts.BaseURL = url
	c, err := New(opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func orderRequest() orderapi.CreateOrderRequest {
	return orderapi.CreateOrderRequest{
		UserID: "665f1c2e9b1e8a3d4c5b6a79",
		Items: []orderapi.Item{
			{ID: "protein-pasta", Name: "Protein Pasta", Price: decimal.RequireFromString("2.0"), Qty: 1},
		},
		TotalAmount: decimal.RequireFromString("2.0"),
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Options{BaseURL: "localhost"}, nil)
	require.Error(t, err)
}

func TestCreateOrder_Success(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createOrder", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"msg":"Order saved.","orderId":"665f1c2e9b1e8a3d4c5b6a7a"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	resp, err := c.CreateOrder(context.Background(), orderRequest())
	require.NoError(t, err)

	assert.Equal(t, "665f1c2e9b1e8a3d4c5b6a7a", resp.OrderID)
	assert.Equal(t, "Order saved.", resp.Msg)
	assert.JSONEq(t, `{
		"userId": "665f1c2e9b1e8a3d4c5b6a79",
		"items": [{"id": "protein-pasta", "name": "Protein Pasta", "price": 2, "qty": 1}],
		"totalAmount": 2
	}`, gotBody)
}

func TestCreateOrder_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"msg":"User and items are required."}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{MaxFailures: 1})
	_, err := c.CreateOrder(context.Background(), orderRequest())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "User and items are required.", se.Msg)
	assert.Equal(t, gobreaker.StateClosed, c.State(), "4xx does not trip the breaker")
}

func TestCreateOrder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"msg":"Server error."}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	_, err := c.CreateOrder(context.Background(), orderRequest())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "Server error.", se.Msg)
}

func TestBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{MaxFailures: 3, OpenTimeout: time.Minute})

	for range 3 {
		_, err := c.CreateOrder(context.Background(), orderRequest())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.CreateOrder(context.Background(), orderRequest())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), hits.Load(), "open breaker does not reach the server")
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, Options{MaxFailures: 1, OpenTimeout: time.Minute})
	_, err := c.CreateOrder(context.Background(), orderRequest())
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.Equal(t, gobreaker.StateOpen, c.State())
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req orderapi.LoginRequest
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, orderapi.Unmarshal(b, &req))

		switch {
		case req.Email != "sara@example.com":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"msg":"User not found."}`)
		case req.Password != "secret1":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"msg":"Incorrect password."}`)
		default:
			_, _ = io.WriteString(w, `{"user":{"_id":"u1","name":"Sara","email":"sara@example.com","phone":"91234567","gender":"female"},"msg":"Login success."}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})

	u, err := c.Login(context.Background(), "sara@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Sara", u.Name)

	_, err = c.Login(context.Background(), "sara@example.com", "nope")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "Incorrect password.", se.Msg)

	_, err = c.Login(context.Background(), "x@example.com", "secret1")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/livez" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv.URL, Options{}).Ping(context.Background()))
}
