// Package session keeps per-visitor storefront state: the logged-in user,
// the cart and the receipt waiting to be shown once.
package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/healthybite/internal/domain/cart"
	"github.com/xenking/healthybite/internal/domain/checkout"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is the state owned by one visitor.
type Session struct {
	ID        string             `json:"id"`
	User      *checkout.Identity `json:"user,omitempty"`
	Cart      *cart.Cart         `json:"cart"`
	Receipt   *checkout.Receipt  `json:"receipt,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// New returns an anonymous session with an empty cart.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Cart:      cart.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool {
	return s.User != nil && s.User.ID != ""
}

// TakeReceipt returns the pending receipt and clears it. The second call
// returns nil.
func (s *Session) TakeReceipt() *checkout.Receipt {
	r := s.Receipt
	s.Receipt = nil
	return r
}

// Logout drops the user and everything tied to them.
func (s *Session) Logout() {
	s.User = nil
	s.Receipt = nil
	s.Cart = cart.New()
}

// normalize repairs a session read from storage.
func (s *Session) normalize() {
	if s.Cart == nil {
		s.Cart = cart.New()
		return
	}
	s.Cart.Normalize()
}

// Store persists sessions.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
