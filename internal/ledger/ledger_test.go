package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/authz"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/db/dbtest"
	"github.com/Doud-FR/Wiki/internal/models"
)

type fixture struct {
	svc    *Service
	store  *db.DB
	owner  *models.User
	member *models.User
	group  *models.Group
	folder models.Resource
}

func setup(t *testing.T) fixture {
	store := dbtest.New(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)
	member := dbtest.User(t, store, "member@example.com", false)
	group := dbtest.Group(t, store, "editors", member)

	folder := &models.Folder{Name: "Specs", Path: "specs", CreatedBy: owner.ID, IsActive: true}
	require.NoError(t, store.CreateFolder(ctx, folder))
	dbtest.Grant(t, store, folder.Resource(), owner.Subject(), models.LevelAdmin)

	engine := authz.NewEngine(store, store)
	return fixture{
		svc:    NewService(store, engine, zap.NewNop()),
		store:  store,
		owner:  owner,
		member: member,
		group:  group,
		folder: folder.Resource(),
	}
}

func TestGrantUpsertsLevel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := GrantRequest{Resource: f.folder, Subject: f.group.Subject(), Level: models.LevelRead}
	first, err := f.svc.Grant(ctx, f.owner, req)
	require.NoError(t, err)

	req.Level = models.LevelWrite
	second, err := f.svc.Grant(ctx, f.owner, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.LevelWrite, second.Level)

	grants, err := f.svc.List(ctx, f.owner, f.folder)
	require.NoError(t, err)
	assert.Len(t, grants, 2, "owner admin grant plus the group grant")

	result, err := f.svc.Check(ctx, f.member, f.folder, models.LevelWrite)
	require.NoError(t, err)
	assert.True(t, result.Allowed())
}

func TestGrantRequiresAdminOnResource(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := GrantRequest{Resource: f.folder, Subject: f.member.Subject(), Level: models.LevelAdmin}
	_, err := f.svc.Grant(ctx, f.member, req)
	assert.True(t, apperr.Is(err, apperr.Denied), "got %v", err)

	_, err = f.svc.Grant(ctx, f.owner, GrantRequest{Resource: f.folder, Subject: f.member.Subject(), Level: models.LevelWrite})
	require.NoError(t, err)
	_, err = f.svc.Grant(ctx, f.member, req)
	assert.True(t, apperr.Is(err, apperr.Denied), "write does not allow granting")

	err = f.svc.Revoke(ctx, f.member, f.folder, f.owner.Subject())
	assert.True(t, apperr.Is(err, apperr.Denied))

	_, err = f.svc.List(ctx, f.member, f.folder)
	assert.True(t, apperr.Is(err, apperr.Denied))
}

func TestGrantValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  GrantRequest
		kind apperr.Kind
	}{
		{"bad level", GrantRequest{Resource: f.folder, Subject: f.member.Subject(), Level: "owner"}, apperr.Invalid},
		{"bad resource type", GrantRequest{Resource: models.Resource{Type: "page", ID: 1}, Subject: f.member.Subject(), Level: models.LevelRead}, apperr.Invalid},
		{"bad subject type", GrantRequest{Resource: f.folder, Subject: models.Subject{Type: "role", ID: 1}, Level: models.LevelRead}, apperr.Invalid},
		{"unknown user", GrantRequest{Resource: f.folder, Subject: models.Subject{Type: models.SubjectUser, ID: 999}, Level: models.LevelRead}, apperr.NotFound},
		{"unknown group", GrantRequest{Resource: f.folder, Subject: models.Subject{Type: models.SubjectGroup, ID: 999}, Level: models.LevelRead}, apperr.NotFound},
		{"unknown document", GrantRequest{Resource: models.Resource{Type: models.ResourceDocument, ID: 999}, Subject: f.member.Subject(), Level: models.LevelRead}, apperr.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Assign(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), err.Error())
		})
	}
}

func TestDenyReplacesOwnerGrant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := dbtest.User(t, f.store, "root@example.com", true)

	_, err := f.svc.Grant(ctx, admin, GrantRequest{Resource: f.folder, Subject: f.owner.Subject(), Level: models.LevelDeny})
	require.NoError(t, err)

	result, err := f.svc.Check(ctx, f.owner, f.folder, models.LevelRead)
	require.NoError(t, err)
	assert.False(t, result.Allowed())
	assert.Equal(t, authz.ReasonDirectDeny, result.Reason)

	require.NoError(t, f.svc.Revoke(ctx, admin, f.folder, f.owner.Subject()))
	err = f.svc.Revoke(ctx, admin, f.folder, f.owner.Subject())
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
