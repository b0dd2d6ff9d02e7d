// Package hierarchy maintains the folder tree and the documents attached
// to it. Every operation takes the acting user explicitly and is checked
// against the authorization engine before anything is written.
package hierarchy

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/authz"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/models"
	"github.com/Doud-FR/Wiki/internal/slug"
)

type Service struct {
	store  *db.DB
	engine *authz.Engine
	ledger *ledger.Service
	logger *zap.Logger
}

func NewService(store *db.DB, engine *authz.Engine, ledger *ledger.Service, logger *zap.Logger) *Service {
	return &Service{store: store, engine: engine, ledger: ledger, logger: logger}
}

type FolderInput struct {
	Name        string
	Description string
	ParentID    *int64
}

type DocumentInput struct {
	Title       string
	Content     string
	ContentType models.ContentType
	FolderID    *int64
	IsPublished bool
	Tags        []string
}

// DocumentUpdate holds the fields to change; nil fields are kept.
type DocumentUpdate struct {
	Title       *string
	Content     *string
	ContentType *models.ContentType
	IsPublished *bool
	Tags        []string
	SetTags     bool
}

// Listing is one level of the tree.
type Listing struct {
	Folders   []models.Folder   `json:"folders"`
	Documents []models.Document `json:"documents"`
}

// CreateFolder derives the folder's path from its name and its parent's
// path. Creating inside a folder requires write on it. The creator receives
// an admin grant on the new folder.
func (s *Service) CreateFolder(ctx context.Context, actor *models.User, in FolderInput) (*models.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalidf("folder name required")
	}
	own := slug.Make(name)
	if own == "" {
		return nil, apperr.Invalidf("folder name %q has no usable characters", name)
	}

	parentPath := ""
	if in.ParentID != nil {
		parent, err := s.store.GetFolder(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if err := s.engine.Require(ctx, actor, parent.Resource(), models.LevelWrite); err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	folder := &models.Folder{
		Name:        name,
		Path:        slug.Join(parentPath, own),
		ParentID:    in.ParentID,
		Description: in.Description,
		IsActive:    true,
		CreatedBy:   actor.ID,
	}
	err := s.store.Tx(ctx, func(tx *db.DB) error {
		if err := tx.CreateFolder(ctx, folder); err != nil {
			return err
		}
		return s.grantOwner(ctx, tx, folder.Resource(), actor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		zap.Int64("folder_id", folder.ID),
		zap.String("path", folder.Path),
		zap.Int64("created_by", actor.ID))
	return folder, nil
}

// CreateDocument derives the slug from the title. A (slug, folder)
// collision fails with Conflict.
func (s *Service) CreateDocument(ctx context.Context, actor *models.User, in DocumentInput) (*models.Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Invalidf("document title required")
	}
	docSlug := slug.Make(title)
	if docSlug == "" {
		return nil, apperr.Invalidf("document title %q has no usable characters", title)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = models.ContentMarkdown
	}
	if !contentType.Valid() {
		return nil, apperr.Invalidf("invalid content type %q", contentType)
	}

	if in.FolderID != nil {
		folder, err := s.store.GetFolder(ctx, *in.FolderID)
		if err != nil {
			return nil, err
		}
		if err := s.engine.Require(ctx, actor, folder.Resource(), models.LevelWrite); err != nil {
			return nil, err
		}
	}

	doc := &models.Document{
		Title:       title,
		Slug:        docSlug,
		Content:     in.Content,
		ContentType: contentType,
		FolderID:    in.FolderID,
		IsPublished: in.IsPublished,
		CreatedBy:   actor.ID,
		UpdatedBy:   int64Ptr(actor.ID),
		Tags:        models.NormalizeTags(in.Tags),
	}
	if doc.IsPublished {
		now := s.now()
		doc.PublishedAt = &now
	}
	err := s.store.Tx(ctx, func(tx *db.DB) error {
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return err
		}
		return s.grantOwner(ctx, tx, doc.Resource(), actor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		zap.Int64("document_id", doc.ID),
		zap.String("slug", doc.Slug),
		zap.Int64("created_by", actor.ID))
	return doc, nil
}

func (s *Service) grantOwner(ctx context.Context, tx *db.DB, resource models.Resource, actor *models.User) error {
	_, err := s.ledger.WithStore(tx).Assign(ctx, ledger.GrantRequest{
		Resource: resource,
		Subject:  actor.Subject(),
		Level:    models.LevelAdmin,
	})
	return err
}

func (s *Service) GetFolder(ctx context.Context, actor *models.User, id int64) (*models.Folder, error) {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Require(ctx, actor, folder.Resource(), models.LevelRead); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *Service) GetDocument(ctx context.Context, actor *models.User, id int64) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Require(ctx, actor, doc.Resource(), models.LevelRead); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument applies upd. A changed title recomputes the slug, and
// publishing for the first time stamps PublishedAt.
func (s *Service) UpdateDocument(ctx context.Context, actor *models.User, id int64, upd DocumentUpdate) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Require(ctx, actor, doc.Resource(), models.LevelWrite); err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		docSlug := slug.Make(title)
		if docSlug == "" {
			return nil, apperr.Invalidf("document title required")
		}
		doc.Title, doc.Slug = title, docSlug
	}
	if upd.Content != nil {
		doc.Content = *upd.Content
	}
	if upd.ContentType != nil {
		if !upd.ContentType.Valid() {
			return nil, apperr.Invalidf("invalid content type %q", *upd.ContentType)
		}
		doc.ContentType = *upd.ContentType
	}
	if upd.IsPublished != nil {
		if *upd.IsPublished && doc.PublishedAt == nil {
			now := s.now()
			doc.PublishedAt = &now
		}
		doc.IsPublished = *upd.IsPublished
	}
	if upd.SetTags {
		doc.Tags = models.NormalizeTags(upd.Tags)
	}
	doc.UpdatedBy = int64Ptr(actor.ID)

	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("document updated", zap.Int64("document_id", doc.ID), zap.Int64("updated_by", actor.ID))
	return doc, nil
}

// DeleteFolder removes an empty folder and its grants. Both child counts
// are checked before anything is deleted.
func (s *Service) DeleteFolder(ctx context.Context, actor *models.User, id int64) error {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Require(ctx, actor, folder.Resource(), models.LevelAdmin); err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(tx *db.DB) error {
		folders, documents, err := tx.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if folders > 0 || documents > 0 {
			return apperr.Conflictf("folder not empty")
		}
		if err := tx.DeleteFolder(ctx, id); err != nil {
			return err
		}
		return tx.DeletePermissionsForResource(ctx, folder.Resource())
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted", zap.Int64("folder_id", id), zap.Int64("deleted_by", actor.ID))
	return nil
}

func (s *Service) DeleteDocument(ctx context.Context, actor *models.User, id int64) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Require(ctx, actor, doc.Resource(), models.LevelAdmin); err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(tx *db.DB) error {
		if err := tx.DeleteDocument(ctx, id); err != nil {
			return err
		}
		return tx.DeletePermissionsForResource(ctx, doc.Resource())
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted", zap.Int64("document_id", id), zap.Int64("deleted_by", actor.ID))
	return nil
}

// List returns the folders and documents directly inside folderID, or at
// the root when folderID is nil, that actor may read.
func (s *Service) List(ctx context.Context, actor *models.User, folderID *int64) (*Listing, error) {
	if folderID != nil {
		if _, err := s.GetFolder(ctx, actor, *folderID); err != nil {
			return nil, err
		}
	}
	scope := db.Scope{FolderID: folderID}

	folders, err := s.store.ListFolders(ctx, scope)
	if err != nil {
		return nil, err
	}
	documents, err := s.store.ListDocuments(ctx, scope)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Folders: []models.Folder{}, Documents: []models.Document{}}
	for _, f := range folders {
		ok, err := s.readable(ctx, actor, f.Resource())
		if err != nil {
			return nil, err
		}
		if ok {
			listing.Folders = append(listing.Folders, f)
		}
	}
	for _, d := range documents {
		ok, err := s.readable(ctx, actor, d.Resource())
		if err != nil {
			return nil, err
		}
		if ok {
			listing.Documents = append(listing.Documents, d)
		}
	}
	return listing, nil
}

func (s *Service) readable(ctx context.Context, actor *models.User, resource models.Resource) (bool, error) {
	result, err := s.engine.Authorize(ctx, actor, resource, models.LevelRead)
	if err != nil {
		return false, err
	}
	return result.Allowed(), nil
}

func (s *Service) now() time.Time { return time.Now().UTC() }

func int64Ptr(v int64) *int64 { return &v }
