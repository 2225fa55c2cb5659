// Package user holds the HealthyBite account model and the registration,
// login and profile rules.
package user

import (
	"context"
	"regexp"

	"github.com/go-faster/errors"
)

// Sentinel errors returned by the service and repositories.
var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// Messages returned to API clients.
const (
	MsgFieldsRequired      = "All fields are required."
	MsgCredentialsRequired = "Email and password required."
	MsgInvalidPhone        = "Phone number must start with 9 or 7 and be exactly 8 digits."
	MsgShortPassword       = "Password must be at least 6 characters."
	MsgEmailTaken          = "Email already registered."
	MsgNotFound            = "User not found."
	MsgIncorrectPassword   = "Incorrect password."
	MsgRegistered          = "User registered."
	MsgLoggedIn            = "Login success."
	MsgUpdated             = "Profile updated."
	MsgDeleted             = "Deleted."
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

var phonePattern = regexp.MustCompile(`^[97][0-9]{7}$`)

// ValidationError reports a rejected input. Msg is safe to show to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// User is a stored account.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Pic          string
	Gender       string
}

// Public is the user without credentials.
type Public struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Pic    string
	Gender string
}

// Public returns the projection of u that may leave the service.
func (u *User) Public() Public {
	return Public{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Phone:  u.Phone,
		Pic:    u.Pic,
		Gender: u.Gender,
	}
}

// Repository defines persistence operations for users.
//
// Create assigns the ID. Create and Update return ErrEmailTaken when the
// email belongs to another user. GetByID, GetByEmail and Update return
// ErrNotFound for unknown users; Delete of an unknown user is not an error.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// ValidPhone reports whether phone is an 8 digit number starting with 9 or 7.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
