package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/hierarchy"
	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/models"
)

type DocumentHandler struct {
	tree   *hierarchy.Service
	logger *zap.Logger
}

func NewDocumentHandler(tree *hierarchy.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{tree: tree, logger: logger}
}

// List answers with the folders and documents at ?folderId=, or at the root
// when it is absent or "null".
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	folderID, err := httputil.OptionalID(r, "folderId")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	listing, err := h.tree.List(r.Context(), middleware.UserFrom(r.Context()), folderID)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, listing)
}

func (h *DocumentHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *int64 `json:"parent_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	folder, err := h.tree.CreateFolder(r.Context(), middleware.UserFrom(r.Context()), hierarchy.FolderInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Created(w, folder)
}

func (h *DocumentHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	folder, err := h.tree.GetFolder(r.Context(), middleware.UserFrom(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, folder)
}

func (h *DocumentHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.tree.DeleteFolder(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "folder deleted successfully", http.StatusOK)
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string             `json:"title"`
		Content     string             `json:"content"`
		ContentType models.ContentType `json:"content_type"`
		FolderID    *int64             `json:"folder_id"`
		IsPublished bool               `json:"is_published"`
		Tags        []string           `json:"tags"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	doc, err := h.tree.CreateDocument(r.Context(), middleware.UserFrom(r.Context()), hierarchy.DocumentInput{
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		FolderID:    req.FolderID,
		IsPublished: req.IsPublished,
		Tags:        req.Tags,
	})
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Created(w, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	doc, err := h.tree.GetDocument(r.Context(), middleware.UserFrom(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	var req struct {
		Title       *string             `json:"title"`
		Content     *string             `json:"content"`
		ContentType *models.ContentType `json:"content_type"`
		IsPublished *bool               `json:"is_published"`
		Tags        *[]string           `json:"tags"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	upd := hierarchy.DocumentUpdate{
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		IsPublished: req.IsPublished,
	}
	if req.Tags != nil {
		upd.Tags, upd.SetTags = *req.Tags, true
	}
	doc, err := h.tree.UpdateDocument(r.Context(), middleware.UserFrom(r.Context()), id, upd)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.OK(w, doc)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.tree.DeleteDocument(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, "document deleted successfully", http.StatusOK)
}
