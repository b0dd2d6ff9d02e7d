package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
)

const folderColumns = `id, name, path, parent_id, description, is_active, created_by, created_at, updated_at`

func scanFolder(row scanner) (*models.Folder, error) {
	folder := &models.Folder{}
	var parentID sql.NullInt64
	err := row.Scan(&folder.ID, &folder.Name, &folder.Path, &parentID, &folder.Description,
		&folder.IsActive, &folder.CreatedBy, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return nil, err
	}
	folder.ParentID = nullInt64(parentID)
	return folder, nil
}

// CreateFolder inserts folder. A path collision fails with Conflict.
func (db *DB) CreateFolder(ctx context.Context, folder *models.Folder) error {
	now := db.now()
	query := `INSERT INTO folders (name, path, parent_id, description, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := db.q.QueryRowContext(ctx, query, folder.Name, folder.Path, folder.ParentID, folder.Description,
		folder.IsActive, folder.CreatedBy, now, now).Scan(&folder.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("folder %q", folder.Path))
	}
	folder.CreatedAt, folder.UpdatedAt = now, now
	return nil
}

func (db *DB) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = $1`, id)
	folder, err := scanFolder(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("folder %d", id))
	}
	return folder, nil
}

// ListFolders returns the folders whose parent is the scope's folder,
// most recently updated first.
func (db *DB) ListFolders(ctx context.Context, scope Scope) ([]models.Folder, error) {
	where, args := scope.where("parent_id", 1)
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM folders`+where+` ORDER BY updated_at DESC, id DESC`, args...)
	if err != nil {
		return nil, translate(err, "list folders")
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, translate(err, "scan folder")
		}
		folders = append(folders, *folder)
	}
	return folders, translate(rows.Err(), "list folders")
}

// CountChildren counts the folders and documents directly inside folder id.
func (db *DB) CountChildren(ctx context.Context, id int64) (folders, documents int, err error) {
	err = db.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE parent_id = $1`, id).Scan(&folders)
	if err != nil {
		return 0, 0, translate(err, "count child folders")
	}
	err = db.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE folder_id = $1`, id).Scan(&documents)
	if err != nil {
		return 0, 0, translate(err, "count child documents")
	}
	return folders, documents, nil
}

func (db *DB) DeleteFolder(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return apperr.WithKind(err, apperr.Conflict, "folder not empty")
	}
	if err != nil {
		return translate(err, fmt.Sprintf("delete folder %d", id))
	}
	return expectRow(res, fmt.Sprintf("folder %d", id))
}
