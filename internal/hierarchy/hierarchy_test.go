package hierarchy

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
	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/models"
)

func newService(t *testing.T) (*Service, *db.DB) {
	store := dbtest.New(t)
	engine := authz.NewEngine(store, store)
	logger := zap.NewNop()
	return NewService(store, engine, ledger.NewService(store, engine, logger), logger), store
}

func TestFolderPaths(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	a, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "  Team Notes! "})
	require.NoError(t, err)
	assert.Equal(t, "team-notes", a.Path)
	assert.Equal(t, "Team Notes!", a.Name)
	assert.Nil(t, a.ParentID)

	b, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Q3 Plans", ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, "team-notes/q3-plans", b.Path)

	_, err = svc.CreateFolder(ctx, owner, FolderInput{Name: "team notes"})
	assert.True(t, apperr.Is(err, apperr.Conflict), "got %v", err)

	missing := int64(999)
	_, err = svc.CreateFolder(ctx, owner, FolderInput{Name: "Orphan", ParentID: &missing})
	assert.True(t, apperr.Is(err, apperr.NotFound), "got %v", err)

	_, err = svc.CreateFolder(ctx, owner, FolderInput{Name: "!!!"})
	assert.True(t, apperr.Is(err, apperr.Invalid))
}

func TestCreatorReceivesAdminGrant(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	folder, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Handbook"})
	require.NoError(t, err)

	p, err := store.FindPermission(ctx, folder.Resource(), owner.Subject())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.LevelAdmin, p.Level)

	doc, err := svc.CreateDocument(ctx, owner, DocumentInput{Title: "Welcome", FolderID: &folder.ID})
	require.NoError(t, err)
	p, err = store.FindPermission(ctx, doc.Resource(), owner.Subject())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.LevelAdmin, p.Level)
}

func TestDeleteFolderRequiresEmpty(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	a, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, "a", a.Path)
	assert.Equal(t, "a/b", b.Path)

	err = svc.DeleteFolder(ctx, owner, a.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict), "got %v", err)
	_, err = store.GetFolder(ctx, a.ID)
	require.NoError(t, err, "a non-empty folder must survive a failed delete")

	require.NoError(t, svc.DeleteFolder(ctx, owner, b.ID))
	require.NoError(t, svc.DeleteFolder(ctx, owner, a.ID))

	_, err = store.GetFolder(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	grants, err := store.ListPermissions(ctx, a.Resource())
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestParentDeletedBeforeChildInsert(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	a, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "A"})
	require.NoError(t, err)
	parent, err := store.GetFolder(ctx, a.ID)
	require.NoError(t, err)

	// A concurrent request removes the parent after it was resolved.
	require.NoError(t, svc.DeleteFolder(ctx, owner, a.ID))

	err = store.CreateFolder(ctx, &models.Folder{
		Name: "B", Path: parent.Path + "/b", ParentID: &parent.ID, CreatedBy: owner.ID, IsActive: true,
	})
	assert.True(t, apperr.Is(err, apperr.NotFound), "got %v", err)

	err = store.CreateDocument(ctx, &models.Document{
		Title: "Intro", Slug: "intro", ContentType: models.ContentMarkdown, FolderID: &parent.ID, CreatedBy: owner.ID,
	})
	assert.True(t, apperr.Is(err, apperr.NotFound), "got %v", err)

	roots, err := store.ListFolders(ctx, db.Scope{})
	require.NoError(t, err)
	assert.Empty(t, roots)
	children, err := store.ListFolders(ctx, db.Scope{FolderID: &parent.ID})
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDeleteFolderWithDocument(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	folder, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Docs"})
	require.NoError(t, err)
	doc, err := svc.CreateDocument(ctx, owner, DocumentInput{Title: "Intro", FolderID: &folder.ID})
	require.NoError(t, err)

	err = svc.DeleteFolder(ctx, owner, folder.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	require.NoError(t, svc.DeleteDocument(ctx, owner, doc.ID))
	require.NoError(t, svc.DeleteFolder(ctx, owner, folder.ID))
}

func TestDuplicateDocumentTitles(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)

	one, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "One"})
	require.NoError(t, err)
	two, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Two"})
	require.NoError(t, err)

	_, err = svc.CreateDocument(ctx, owner, DocumentInput{Title: "Intro", FolderID: &one.ID})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, owner, DocumentInput{Title: "Intro", FolderID: &one.ID})
	assert.True(t, apperr.Is(err, apperr.Conflict), "same folder: got %v", err)

	_, err = svc.CreateDocument(ctx, owner, DocumentInput{Title: "Intro", FolderID: &two.ID})
	assert.NoError(t, err, "different folder")

	root, err := svc.CreateDocument(ctx, owner, DocumentInput{Title: "Intro"})
	require.NoError(t, err, "root and nested")
	assert.Equal(t, "intro", root.Slug)
	assert.Equal(t, models.ContentMarkdown, root.ContentType)

	_, err = svc.CreateDocument(ctx, owner, DocumentInput{Title: "intro"})
	assert.True(t, apperr.Is(err, apperr.Conflict), "root twice: got %v", err)
}

func TestCreateRequiresWriteOnFolder(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)
	reader := dbtest.User(t, store, "reader@example.com", false)

	folder, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Locked"})
	require.NoError(t, err)
	dbtest.Grant(t, store, folder.Resource(), reader.Subject(), models.LevelRead)

	_, err = svc.CreateDocument(ctx, reader, DocumentInput{Title: "Notes", FolderID: &folder.ID})
	assert.True(t, apperr.Is(err, apperr.Denied), "got %v", err)
	_, err = svc.CreateFolder(ctx, reader, FolderInput{Name: "Sub", ParentID: &folder.ID})
	assert.True(t, apperr.Is(err, apperr.Denied))

	dbtest.Grant(t, store, folder.Resource(), reader.Subject(), models.LevelWrite)
	_, err = svc.CreateDocument(ctx, reader, DocumentInput{Title: "Notes", FolderID: &folder.ID})
	assert.NoError(t, err)

	err = svc.DeleteFolder(ctx, reader, folder.ID)
	assert.True(t, apperr.Is(err, apperr.Denied))
}

func TestUpdateDocument(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)
	editor := dbtest.User(t, store, "editor@example.com", false)

	doc, err := svc.CreateDocument(ctx, owner, DocumentInput{Title: "Draft", Tags: []string{" go ", "", "go", "wiki"}})
	require.NoError(t, err)
	assert.Equal(t, models.Tags{"go", "wiki"}, doc.Tags)
	assert.Nil(t, doc.PublishedAt)

	title := "Final Version"
	_, err = svc.UpdateDocument(ctx, editor, doc.ID, DocumentUpdate{Title: &title})
	assert.True(t, apperr.Is(err, apperr.Denied))

	dbtest.Grant(t, store, doc.Resource(), editor.Subject(), models.LevelWrite)
	published := true
	updated, err := svc.UpdateDocument(ctx, editor, doc.ID, DocumentUpdate{Title: &title, IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, "final-version", updated.Slug)
	require.NotNil(t, updated.PublishedAt)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, editor.ID, *updated.UpdatedBy)
	firstPublished := *updated.PublishedAt

	unpublished := false
	_, err = svc.UpdateDocument(ctx, editor, doc.ID, DocumentUpdate{IsPublished: &unpublished})
	require.NoError(t, err)
	again, err := svc.UpdateDocument(ctx, editor, doc.ID, DocumentUpdate{IsPublished: &published})
	require.NoError(t, err)
	assert.True(t, firstPublished.Equal(*again.PublishedAt), "publishedAt is stamped only once")

	stored, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final Version", stored.Title)
	assert.True(t, stored.IsPublished)

	bad := models.ContentType("pdf")
	_, err = svc.UpdateDocument(ctx, owner, doc.ID, DocumentUpdate{ContentType: &bad})
	assert.True(t, apperr.Is(err, apperr.Invalid))
}

func TestListFiltersUnreadable(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, store, "owner@example.com", false)
	other := dbtest.User(t, store, "other@example.com", false)
	admin := dbtest.User(t, store, "admin@example.com", true)

	shared, err := svc.CreateFolder(ctx, owner, FolderInput{Name: "Shared"})
	require.NoError(t, err)
	_, err = svc.CreateFolder(ctx, owner, FolderInput{Name: "Private"})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, owner, DocumentInput{Title: "Readme"})
	require.NoError(t, err)
	dbtest.Grant(t, store, shared.Resource(), other.Subject(), models.LevelRead)

	listing, err := svc.List(ctx, other, nil)
	require.NoError(t, err)
	require.Len(t, listing.Folders, 1)
	assert.Equal(t, shared.ID, listing.Folders[0].ID)
	assert.Empty(t, listing.Documents)

	listing, err = svc.List(ctx, owner, nil)
	require.NoError(t, err)
	assert.Len(t, listing.Folders, 2)
	assert.Len(t, listing.Documents, 1)

	listing, err = svc.List(ctx, admin, &shared.ID)
	require.NoError(t, err)
	assert.Empty(t, listing.Folders)

	missing := int64(404)
	_, err = svc.List(ctx, owner, &missing)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
