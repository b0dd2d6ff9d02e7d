package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/models"
)

// Groups manages groups and their members. Membership feeds authorization,
// so every change requires an admin.
type Groups struct {
	store  *db.DB
	logger *zap.Logger
}

func NewGroups(store *db.DB, logger *zap.Logger) *Groups {
	return &Groups{store: store, logger: logger}
}

type GroupUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (g *Groups) List(ctx context.Context) ([]models.Group, error) {
	return g.store.GetAllGroups(ctx)
}

// Get returns the group with its members.
func (g *Groups) Get(ctx context.Context, id int64) (*models.Group, error) {
	group, err := g.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if group.Members, err = g.store.GroupMembers(ctx, id); err != nil {
		return nil, err
	}
	return group, nil
}

func (g *Groups) Create(ctx context.Context, actor *models.User, name, description string) (*models.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("group name required")
	}
	group := &models.Group{Name: name, Description: description, IsActive: true}
	if err := g.store.CreateGroup(ctx, group); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("group name already exists")
		}
		return nil, err
	}
	g.logger.Info("group created", zap.Int64("group_id", group.ID), zap.String("name", group.Name))
	return group, nil
}

func (g *Groups) Update(ctx context.Context, actor *models.User, id int64, upd GroupUpdate) (*models.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	group, err := g.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Invalidf("group name cannot be empty")
		}
		group.Name = name
	}
	if upd.Description != nil {
		group.Description = *upd.Description
	}
	if upd.IsActive != nil {
		group.IsActive = *upd.IsActive
	}
	if err := g.store.UpdateGroup(ctx, group); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("group name already exists")
		}
		return nil, err
	}
	return group, nil
}

// Delete removes the group together with its memberships and grants.
func (g *Groups) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := g.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	g.logger.Info("group deleted", zap.Int64("group_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

func (g *Groups) AddMember(ctx context.Context, actor *models.User, groupID, userID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := g.exists(ctx, groupID, userID); err != nil {
		return err
	}
	if err := g.store.AddMember(ctx, groupID, userID); err != nil {
		return err
	}
	g.logger.Info("group member added", zap.Int64("group_id", groupID), zap.Int64("user_id", userID))
	return nil
}

func (g *Groups) RemoveMember(ctx context.Context, actor *models.User, groupID, userID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := g.exists(ctx, groupID, userID); err != nil {
		return err
	}
	if err := g.store.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	g.logger.Info("group member removed", zap.Int64("group_id", groupID), zap.Int64("user_id", userID))
	return nil
}

func (g *Groups) exists(ctx context.Context, groupID, userID int64) error {
	if _, err := g.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	_, err := g.store.GetUser(ctx, userID)
	return err
}
