package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/orderapi"
)

// RegisterUser handles POST /registerUser.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req orderapi.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, err := h.users.Register(r.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Pic:      req.Pic,
		Gender:   req.Gender,
	})
	if err != nil {
		mapUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &orderapi.UserResponse{User: toAPIUser(p), Msg: user.MsgRegistered})
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req orderapi.LoginRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		mapUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &orderapi.UserResponse{User: toAPIUser(p), Msg: user.MsgLoggedIn})
}

// GetProfiles handles GET /getProfiles.
func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}

	resp := orderapi.ProfilesResponse{Users: make([]orderapi.User, len(list))}
	for i := range list {
		resp.Users[i] = toAPIUser(&list[i])
	}
	writeJSON(w, http.StatusOK, &resp)
}

// UpdateProfile handles POST /updateProfile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req orderapi.UpdateProfileRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, err := h.users.UpdateProfile(r.Context(), user.UpdateRequest{
		ID:     req.UID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Pic:    req.Pic,
		Gender: req.Gender,
	})
	if err != nil {
		mapUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &orderapi.UserResponse{User: toAPIUser(p), Msg: user.MsgUpdated})
}

// DeleteUser handles DELETE /delUser/{uid}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "uid")); err != nil {
		serverError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, user.MsgDeleted)
}

func toAPIUser(p *user.Public) orderapi.User {
	return orderapi.User{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Phone:  p.Phone,
		Pic:    p.Pic,
		Gender: p.Gender,
	}
}

// mapUserError converts user domain errors to responses.
func mapUserError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *user.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeMsg(w, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, user.ErrEmailTaken):
		writeMsg(w, http.StatusConflict, user.MsgEmailTaken)
	case errors.Is(err, user.ErrNotFound):
		writeMsg(w, http.StatusNotFound, user.MsgNotFound)
	case errors.Is(err, user.ErrIncorrectPassword):
		writeMsg(w, http.StatusUnauthorized, user.MsgIncorrectPassword)
	default:
		serverError(w, r, err)
	}
}
