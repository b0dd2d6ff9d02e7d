package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/identity"
)

type UserHandler struct {
	users  *identity.Users
	logger *zap.Logger
}

func NewUserHandler(users *identity.Users, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), middleware.UserFrom(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IsAdmin   bool   `json:"is_admin"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Create(r.Context(), middleware.UserFrom(r.Context()), identity.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Created(w, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	user, err := h.users.Get(r.Context(), middleware.UserFrom(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	var req struct {
		Email     *string `json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		IsAdmin   *bool   `json:"is_admin"`
		IsActive  *bool   `json:"is_active"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), middleware.UserFrom(r.Context()), id, identity.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsAdmin:   req.IsAdmin,
		IsActive:  req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.users.Delete(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "user deleted successfully", http.StatusOK)
}
