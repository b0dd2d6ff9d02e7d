package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/identity"
)

type GroupHandler struct {
	groups *identity.Groups
	logger *zap.Logger
}

func NewGroupHandler(groups *identity.Groups, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, groups)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	group, err := h.groups.Create(r.Context(), middleware.UserFrom(r.Context()), req.Name, req.Description)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Created(w, group)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	group, err := h.groups.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	group, err := h.groups.Update(r.Context(), middleware.UserFrom(r.Context()), id, identity.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, group)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.groups.Delete(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "group deleted successfully", http.StatusOK)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if req.UserID <= 0 {
		httputil.JSONError(w, "valid user_id required", http.StatusBadRequest)
		return
	}
	if err := h.groups.AddMember(r.Context(), middleware.UserFrom(r.Context()), id, req.UserID); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "user added to group successfully", http.StatusOK)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	userID, err := httputil.PathID(r, "userId")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.groups.RemoveMember(r.Context(), middleware.UserFrom(r.Context()), id, userID); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "user removed from group successfully", http.StatusOK)
}
