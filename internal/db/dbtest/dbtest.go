// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/models"
)

// New returns a migrated store backed by a file in t.TempDir().
func New(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Init(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "wiki.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// User inserts an active user with an unusable password hash.
func User(t *testing.T, store *db.DB, email string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     email,
		IsAdmin:      admin,
		IsActive:     true,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// Group inserts a group with the given members.
func Group(t *testing.T, store *db.DB, name string, members ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	group := &models.Group{Name: name, IsActive: true}
	require.NoError(t, store.CreateGroup(ctx, group))
	for _, m := range members {
		require.NoError(t, store.AddMember(ctx, group.ID, m.ID))
	}
	return group
}

// Grant upserts a grant and returns the stored row.
func Grant(t *testing.T, store *db.DB, resource models.Resource, subject models.Subject, level models.Level) *models.Permission {
	t.Helper()
	p := &models.Permission{
		ResourceType: resource.Type,
		ResourceID:   resource.ID,
		SubjectType:  subject.Type,
		SubjectID:    subject.ID,
		Level:        level,
	}
	require.NoError(t, store.UpsertPermission(context.Background(), p))
	return p
}
