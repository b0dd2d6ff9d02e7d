package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/models"
)

type PermissionHandler struct {
	ledger *ledger.Service
	logger *zap.Logger
}

func NewPermissionHandler(ledger *ledger.Service, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{ledger: ledger, logger: logger}
}

func resourceFromPath(r *http.Request) (models.Resource, error) {
	rt, err := models.ParseResourceType(mux.Vars(r)["resourceType"])
	if err != nil {
		return models.Resource{}, apperr.Invalidf("%v", err)
	}
	id, err := httputil.PathID(r, "resourceId")
	if err != nil {
		return models.Resource{}, err
	}
	return models.Resource{Type: rt, ID: id}, nil
}

func subjectFromPath(r *http.Request) (models.Subject, error) {
	st, err := models.ParseSubjectType(mux.Vars(r)["subjectType"])
	if err != nil {
		return models.Subject{}, apperr.Invalidf("%v", err)
	}
	id, err := httputil.PathID(r, "subjectId")
	if err != nil {
		return models.Subject{}, err
	}
	return models.Subject{Type: st, ID: id}, nil
}

func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	grants, err := h.ledger.List(r.Context(), middleware.UserFrom(r.Context()), resource)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, grants)
}

// Grant upserts the grant held by the subject named in the body.
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	var req struct {
		SubjectType string `json:"subject_type"`
		SubjectID   int64  `json:"subject_id"`
		Permission  string `json:"permission"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	grant, err := h.ledger.Grant(r.Context(), middleware.UserFrom(r.Context()), ledger.GrantRequest{
		Resource: resource,
		Subject:  models.Subject{Type: models.SubjectType(req.SubjectType), ID: req.SubjectID},
		Level:    models.Level(req.Permission),
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, grant)
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	subject, err := subjectFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.ledger.Revoke(r.Context(), middleware.UserFrom(r.Context()), resource, subject); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "permission revoked", http.StatusOK)
}

// Check reports the caller's own access to the resource at ?level=
// (default read).
func (h *PermissionHandler) Check(w http.ResponseWriter, r *http.Request) {
	resource, err := resourceFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	level := models.LevelRead
	if raw := r.URL.Query().Get("level"); raw != "" {
		level = models.Level(raw)
	}

	result, err := h.ledger.Check(r.Context(), middleware.UserFrom(r.Context()), resource, level)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"resource": resource,
		"level":    level,
		"allowed":  result.Allowed(),
		"reason":   result.Reason.String(),
	})
}
