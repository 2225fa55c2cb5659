package user

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used for new passwords.
const HashCost = 10

// RegisterRequest holds the registration form. Pic is optional.
type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Pic      string
	Gender   string
}

// UpdateRequest holds a profile update. A nil Pic keeps the current picture.
type UpdateRequest struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Pic    *string
	Gender string
}

// Service implements account operations on top of a Repository.
type Service struct {
	users Repository
	cost  int
}

// NewService creates a user Service.
func NewService(users Repository) *Service {
	return &Service{users: users, cost: HashCost}
}

// Register validates req, hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Public, error) {
	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Password == "" || req.Gender == "" {
		return nil, &ValidationError{Msg: MsgFieldsRequired}
	}
	if !ValidPhone(req.Phone) {
		return nil, &ValidationError{Msg: MsgInvalidPhone}
	}
	if len(req.Password) < MinPasswordLen {
		return nil, &ValidationError{Msg: MsgShortPassword}
	}

	switch _, err := s.users.GetByEmail(ctx, req.Email); {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "lookup email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Pic:          req.Pic,
		Gender:       req.Gender,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}

	p := u.Public()
	return &p, nil
}

// Login checks the password of the user registered with email.
func (s *Service) Login(ctx context.Context, email, password string) (*Public, error) {
	if email == "" || password == "" {
		return nil, &ValidationError{Msg: MsgCredentialsRequired}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrIncorrectPassword
		}
		return nil, errors.Wrap(err, "compare password")
	}

	p := u.Public()
	return &p, nil
}

// List returns every user profile.
func (s *Service) List(ctx context.Context) ([]Public, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	out := make([]Public, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	return out, nil
}

// UpdateProfile replaces the contact details of an existing user.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateRequest) (*Public, error) {
	if req.ID == "" || req.Name == "" || req.Email == "" || req.Phone == "" || req.Gender == "" {
		return nil, &ValidationError{Msg: MsgFieldsRequired}
	}
	if !ValidPhone(req.Phone) {
		return nil, &ValidationError{Msg: MsgInvalidPhone}
	}

	u, err := s.users.GetByID(ctx, req.ID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	u.Name = req.Name
	u.Email = req.Email
	u.Phone = req.Phone
	u.Gender = req.Gender
	if req.Pic != nil {
		u.Pic = *req.Pic
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, errors.Wrap(err, "update user")
	}

	p := u.Public()
	return &p, nil
}

// Delete removes the user with id. Unknown ids succeed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete user")
	}
	return nil
}
