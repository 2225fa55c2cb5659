package storefront

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/session"
)

// Auth gate answer for anonymous visitors.
const (
	msgLoginRequired = "login required"
	loginPath        = "/login"
)

type sessionKey struct{}

// current returns the session attached to the request. It is a read-only
// view; mutations go through update.
func current(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return s
}

// attach loads the visitor's session, or starts a new one and sets the
// cookie when there is none or it expired.
func (s *Server) attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var sess *session.Session
		if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
			sess, err = s.sessions.Load(ctx, c.Value)
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				serverError(w, r, errors.Wrap(err, "load session"))
				return
			}
		}
		if sess == nil {
			sess = session.New()
			if err := s.sessions.Save(ctx, sess); err != nil {
				serverError(w, r, errors.Wrap(err, "create session"))
				return
			}
			s.setCookie(w, sess.ID)
		}

		ctx = context.WithValue(ctx, sessionKey{}, sess)
		ctx = zctx.With(ctx, zap.String("session_id", sess.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin is the auth gate: it answers 401 with a login redirect hint
// unless a user is logged in.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := current(r); sess == nil || !sess.Authenticated() {
			writeLoginRequired(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// load returns the freshest copy of the session, read under its lock.
func (s *Server) load(ctx context.Context, id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.fetch(ctx, id)
}

// update runs fn on the freshest copy of the request's session while
// holding its lock and saves the result.
func (s *Server) update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	return sess, nil
}

// fetch loads a session. One that vanished in the meantime is recreated
// under the same id. Callers hold the session lock.
func (s *Server) fetch(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Load(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = session.New()
		sess.ID = id
	case err != nil:
		return nil, errors.Wrap(err, "load session")
	}
	return sess, nil
}
