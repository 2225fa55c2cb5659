// Package backend is the storefront's client for the api-server.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/orderapi"
)

// ErrUnavailable is returned without contacting the api-server while the
// circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// maxBody caps the response bytes read from the api-server.
const maxBody = 1 << 20

// StatusError is a non-2xx answer from the api-server. Msg is the server's
// "msg" field when it sent one.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Msg)
}

// Options configures a Client.
type Options struct {
	// BaseURL of the api-server, e.g. "http://localhost:3002".
	BaseURL string
	// Timeout bounds one request including the response body.
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
	// Transport overrides the base round tripper. Used in tests.
	Transport http.RoundTripper
}

func (o *Options) setDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxFailures == 0 {
		o.MaxFailures = 5
	}
	if o.OpenTimeout == 0 {
		o.OpenTimeout = 30 * time.Second
	}
	if o.Transport == nil {
		o.Transport = http.DefaultTransport
	}
}

type response struct {
	status int
	body   []byte
}

// Client calls the api-server. Transport failures and 5xx answers count
// against the circuit breaker; 4xx answers do not.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
}

// New creates a Client.
func New(opts Options, lg *zap.Logger) (*Client, error) {
	opts.setDefaults()

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	if lg == nil {
		lg = zap.NewNop()
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        "api-server",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return c, nil
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// CreateOrder submits an order. It is called once per checkout and never
// retried here.
func (c *Client) CreateOrder(ctx context.Context, req orderapi.CreateOrderRequest) (*orderapi.CreateOrderResponse, error) {
	var out orderapi.CreateOrderResponse
	if err := c.post(ctx, "/createOrder", &req, &out); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return &out, nil
}

// Login checks credentials and returns the user profile.
func (c *Client) Login(ctx context.Context, email, password string) (*orderapi.User, error) {
	var out orderapi.UserResponse
	if err := c.post(ctx, "/login", &orderapi.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return &out.User, nil
}

// Ping checks that the api-server answers its liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/livez", nil)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return &StatusError{Status: resp.status}
	}
	return nil
}

type encoder interface{ Encode(*jx.Encoder) }

type decoder interface{ Decode(*jx.Decoder) error }

func (c *Client) post(ctx context.Context, path string, in encoder, out decoder) error {
	resp, err := c.do(ctx, http.MethodPost, path, orderapi.Marshal(in))
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status > 299 {
		return statusError(resp)
	}
	if err := orderapi.Unmarshal(resp.body, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (response, error) {
	resp, err := c.breaker.Execute(func() (response, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return response{}, errors.Wrap(ErrUnavailable, err.Error())
	case err != nil:
		var se *StatusError
		if errors.As(err, &se) {
			// 5xx answers carry a usable body.
			return resp, nil
		}
		return response{}, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (response, error) {
	u := c.base.JoinPath(path)

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return response{}, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return response{}, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBody))
	if err != nil {
		return response{}, errors.Wrap(err, "read body")
	}

	zctx.From(ctx).Debug("Backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	resp := response{status: httpResp.StatusCode, body: data}
	if resp.status >= 500 {
		return resp, &StatusError{Status: resp.status}
	}
	return resp, nil
}

func statusError(resp response) error {
	var m orderapi.Message
	if err := orderapi.Unmarshal(resp.body, &m); err != nil {
		return &StatusError{Status: resp.status}
	}
	return &StatusError{Status: resp.status, Msg: m.Msg}
}
