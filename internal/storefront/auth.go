package storefront

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/backend"
	"github.com/xenking/healthybite/internal/domain/checkout"
	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/orderapi"
	"github.com/xenking/healthybite/internal/session"
)

// Login handles POST /login. Credentials are checked by the user service;
// its 4xx answers are relayed unchanged.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	var req orderapi.LoginRequest
	if err := orderapi.Unmarshal(data, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	u, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.loginError(w, r, err)
		return
	}

	id := current(r).ID
	if _, err := s.update(r.Context(), id, func(sess *session.Session) error {
		if sess.User != nil && sess.User.ID != u.ID {
			// A different account starts from an empty cart.
			sess.Logout()
		}
		sess.User = &checkout.Identity{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Phone: u.Phone,
		}
		sess.Receipt = nil
		return nil
	}); err != nil {
		serverError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Customer logged in", zap.String("user_id", u.ID))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(orderapi.Marshal(&orderapi.UserResponse{User: *u, Msg: user.MsgLoggedIn}))
}

func (s *Server) loginError(w http.ResponseWriter, r *http.Request, err error) {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se) && se.Status < http.StatusInternalServerError:
		msg := se.Msg
		if msg == "" {
			msg = http.StatusText(se.Status)
		}
		writeMsg(w, se.Status, msg)
	case errors.Is(err, backend.ErrUnavailable):
		writeMsg(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		zctx.From(r.Context()).Error("Login failed", zap.Error(err))
		writeMsg(w, http.StatusBadGateway, msgUnavailable)
	}
}

// Logout handles POST /logout. The cart and any pending receipt go with
// the user.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.update(r.Context(), current(r).ID, func(sess *session.Session) error {
		sess.Logout()
		return nil
	}); err != nil {
		serverError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, msgLoggedOut)
}
