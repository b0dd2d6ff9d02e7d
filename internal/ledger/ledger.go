// Package ledger manages the grant table: one level per subject per
// resource, written with upsert semantics.
package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/authz"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/models"
)

// GrantRequest names a grant to write.
type GrantRequest struct {
	Resource models.Resource
	Subject  models.Subject
	Level    models.Level
}

func (r GrantRequest) validate() error {
	if !r.Resource.Type.Valid() {
		return apperr.Invalidf("invalid resource type %q", r.Resource.Type)
	}
	if !r.Subject.Type.Valid() {
		return apperr.Invalidf("invalid subject type %q", r.Subject.Type)
	}
	if !r.Level.Valid() {
		return apperr.Invalidf("invalid permission level %q", r.Level)
	}
	if r.Resource.ID <= 0 || r.Subject.ID <= 0 {
		return apperr.Invalidf("resource and subject ids must be positive")
	}
	return nil
}

type Service struct {
	store  *db.DB
	engine *authz.Engine
	logger *zap.Logger
}

func NewService(store *db.DB, engine *authz.Engine, logger *zap.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

// WithStore returns a copy of s that reads and writes through store,
// typically a transaction.
func (s *Service) WithStore(store *db.DB) *Service {
	cp := *s
	cp.store = store
	return &cp
}

// Grant writes req on behalf of actor, who must hold admin on the resource.
func (s *Service) Grant(ctx context.Context, actor *models.User, req GrantRequest) (*models.Permission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.engine.Require(ctx, actor, req.Resource, models.LevelAdmin); err != nil {
		return nil, err
	}
	p, err := s.Assign(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission granted",
		zap.Int64("actor_id", actor.ID),
		zap.Stringer("resource", req.Resource),
		zap.Stringer("subject", req.Subject),
		zap.String("level", string(req.Level)))
	return p, nil
}

// Assign writes req without an authorization check. Both ends of the grant
// must exist. An existing grant for the same subject and resource has its
// level replaced.
func (s *Service) Assign(ctx context.Context, req GrantRequest) (*models.Permission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.resourceExists(ctx, req.Resource); err != nil {
		return nil, err
	}
	if err := s.subjectExists(ctx, req.Subject); err != nil {
		return nil, err
	}

	p := &models.Permission{
		ResourceType: req.Resource.Type,
		ResourceID:   req.Resource.ID,
		SubjectType:  req.Subject.Type,
		SubjectID:    req.Subject.ID,
		Level:        req.Level,
	}
	if err := s.store.UpsertPermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Revoke removes the grant subject holds on resource. actor must hold admin
// on the resource.
func (s *Service) Revoke(ctx context.Context, actor *models.User, resource models.Resource, subject models.Subject) error {
	if err := s.engine.Require(ctx, actor, resource, models.LevelAdmin); err != nil {
		return err
	}
	if err := s.Remove(ctx, resource, subject); err != nil {
		return err
	}
	s.logger.Info("permission revoked",
		zap.Int64("actor_id", actor.ID),
		zap.Stringer("resource", resource),
		zap.Stringer("subject", subject))
	return nil
}

// Remove deletes a grant without an authorization check.
func (s *Service) Remove(ctx context.Context, resource models.Resource, subject models.Subject) error {
	if !resource.Type.Valid() || !subject.Type.Valid() {
		return apperr.Invalidf("invalid grant key %s / %s", resource, subject)
	}
	return s.store.DeletePermission(ctx, resource, subject)
}

// List returns every grant on resource. actor must hold admin on it.
func (s *Service) List(ctx context.Context, actor *models.User, resource models.Resource) ([]models.Permission, error) {
	if err := s.engine.Require(ctx, actor, resource, models.LevelAdmin); err != nil {
		return nil, err
	}
	return s.Grants(ctx, resource)
}

// Grants lists the grants on resource without an authorization check.
func (s *Service) Grants(ctx context.Context, resource models.Resource) ([]models.Permission, error) {
	if !resource.Type.Valid() {
		return nil, apperr.Invalidf("invalid resource type %q", resource.Type)
	}
	if err := s.resourceExists(ctx, resource); err != nil {
		return nil, err
	}
	return s.store.ListPermissions(ctx, resource)
}

// Check evaluates user's access to resource. The result is returned as is,
// a denial is not an error.
func (s *Service) Check(ctx context.Context, user *models.User, resource models.Resource, required models.Level) (authz.Result, error) {
	return s.engine.Authorize(ctx, user, resource, required)
}

func (s *Service) resourceExists(ctx context.Context, resource models.Resource) error {
	var err error
	switch resource.Type {
	case models.ResourceFolder:
		_, err = s.store.GetFolder(ctx, resource.ID)
	case models.ResourceDocument:
		_, err = s.store.GetDocument(ctx, resource.ID)
	}
	return err
}

func (s *Service) subjectExists(ctx context.Context, subject models.Subject) error {
	var err error
	switch subject.Type {
	case models.SubjectUser:
		_, err = s.store.GetUser(ctx, subject.ID)
	case models.SubjectGroup:
		_, err = s.store.GetGroup(ctx, subject.ID)
	}
	return err
}
