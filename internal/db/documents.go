package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Doud-FR/Wiki/internal/models"
)

const documentColumns = `id, title, slug, content, content_type, folder_id, is_published, published_at,
	created_by, updated_by, tags, created_at, updated_at`

func scanDocument(row scanner) (*models.Document, error) {
	doc := &models.Document{}
	var (
		folderID, updatedBy sql.NullInt64
		publishedAt         sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.Slug, &doc.Content, &doc.ContentType, &folderID,
		&doc.IsPublished, &publishedAt, &doc.CreatedBy, &updatedBy, &doc.Tags, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.FolderID = nullInt64(folderID)
	doc.UpdatedBy = nullInt64(updatedBy)
	doc.PublishedAt = nullTime(publishedAt)
	return doc, nil
}

// CreateDocument inserts doc. A (slug, folder) collision fails with
// Conflict.
func (db *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := db.now()
	if doc.Tags == nil {
		doc.Tags = models.Tags{}
	}
	query := `INSERT INTO documents (title, slug, content, content_type, folder_id, is_published, published_at,
			created_by, updated_by, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err := db.q.QueryRowContext(ctx, query, doc.Title, doc.Slug, doc.Content, string(doc.ContentType), doc.FolderID,
		doc.IsPublished, doc.PublishedAt, doc.CreatedBy, doc.UpdatedBy, doc.Tags, now, now).Scan(&doc.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("document %q", doc.Slug))
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	return nil
}

func (db *DB) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("document %d", id))
	}
	return doc, nil
}

// ListDocuments returns the documents in the scope's folder, most recently
// updated first.
func (db *DB) ListDocuments(ctx context.Context, scope Scope) ([]models.Document, error) {
	where, args := scope.where("folder_id", 1)
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents`+where+` ORDER BY updated_at DESC, id DESC`, args...)
	if err != nil {
		return nil, translate(err, "list documents")
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, translate(err, "scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, translate(rows.Err(), "list documents")
}

func (db *DB) UpdateDocument(ctx context.Context, doc *models.Document) error {
	now := db.now()
	query := `UPDATE documents SET title = $1, slug = $2, content = $3, content_type = $4, is_published = $5,
		published_at = $6, updated_by = $7, tags = $8, updated_at = $9 WHERE id = $10`
	res, err := db.q.ExecContext(ctx, query, doc.Title, doc.Slug, doc.Content, string(doc.ContentType),
		doc.IsPublished, doc.PublishedAt, doc.UpdatedBy, doc.Tags, now, doc.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("document %q", doc.Slug))
	}
	if err := expectRow(res, fmt.Sprintf("document %d", doc.ID)); err != nil {
		return err
	}
	doc.UpdatedAt = now
	return nil
}

func (db *DB) DeleteDocument(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete document %d", id))
	}
	return expectRow(res, fmt.Sprintf("document %d", id))
}
