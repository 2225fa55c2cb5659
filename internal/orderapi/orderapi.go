// Package orderapi defines the wire schema shared by the order service and
// its clients. Line quantities are always encoded as "qty".
package orderapi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a line of a create-order request.
type Item struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Qty   int
	Image string
}

// CreateOrderRequest is the body of POST /createOrder.
type CreateOrderRequest struct {
	UserID      string
	Items       []Item
	TotalAmount decimal.Decimal
}

// CreateOrderResponse is the success body of POST /createOrder.
type CreateOrderResponse struct {
	OrderID string
	Msg     string
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string
	Password string
}

// User is the public projection of a registered user.
type User struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Pic    string
	Gender string
}

// UserResponse wraps a user with a status message, as returned by
// /login, /registerUser and /updateProfile.
type UserResponse struct {
	User User
	Msg  string
}

// Message is the error body used by every endpoint.
type Message struct {
	Msg string
}

// RegisterRequest is the body of POST /registerUser.
type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Pic      string
	Gender   string
}

// UpdateProfileRequest is the body of POST /updateProfile. A nil Pic means
// the field was absent.
type UpdateProfileRequest struct {
	UID    string
	Name   string
	Email  string
	Phone  string
	Pic    *string
	Gender string
}

// ProfilesResponse is the body of GET /getProfiles.
type ProfilesResponse struct {
	Users []User
}

// OrderItem is a stored order line.
type OrderItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Qty       int
	Image     string
}

// Order is a stored order.
type Order struct {
	ID          string
	UserID      string
	Items       []OrderItem
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Status      string
}

// OrdersResponse is the body of GET /orders/{userId}.
type OrdersResponse struct {
	Orders []Order
}
