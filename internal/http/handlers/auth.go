package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/bootstrap"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/identity"
	"github.com/Doud-FR/Wiki/internal/models"
	"github.com/Doud-FR/Wiki/internal/security"
)

type AuthHandler struct {
	db     *db.DB
	users  *identity.Users
	sec    *security.SessionStore
	logger *zap.Logger
}

func NewAuthHandler(db *db.DB, users *identity.Users, sec *security.SessionStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		db:     db,
		users:  users,
		sec:    sec,
		logger: logger,
	}
}

type userResponse struct {
	User *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), identity.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.sec.Login(w, r, user.ID); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Created(w, userResponse{User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.sec.Login(w, r, user.ID); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.OK(w, userResponse{User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sec.Logout(w, r); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "logout successful", http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, userResponse{User: middleware.UserFrom(r.Context())})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFrom(r.Context())
	var req struct {
		Email     *string `json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), actor, actor.ID, identity.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, userResponse{User: user})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFrom(r.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "password changed successfully", http.StatusOK)
}

// AdminStatus is public: it tells a fresh install's operator whether the
// bootstrap admin exists and which email it uses.
func (h *AuthHandler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	exists, err := h.db.HasAdmin(r.Context())
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"admin_exists": exists,
		"admin_email":  bootstrap.AdminEmail,
	})
}
