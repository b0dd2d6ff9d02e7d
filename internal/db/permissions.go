package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Doud-FR/Wiki/internal/models"
)

const permissionColumns = `id, resource_type, resource_id, subject_type, subject_id, level, created_at, updated_at`

func scanPermission(row scanner) (*models.Permission, error) {
	p := &models.Permission{}
	err := row.Scan(&p.ID, &p.ResourceType, &p.ResourceID, &p.SubjectType, &p.SubjectID, &p.Level,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPermission writes p keyed on (resource, subject). An existing grant
// for the same key has its level replaced; the row is never duplicated.
func (db *DB) UpsertPermission(ctx context.Context, p *models.Permission) error {
	now := db.now()
	query := `INSERT INTO permissions (resource_type, resource_id, subject_type, subject_id, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (resource_type, resource_id, subject_type, subject_id)
		DO UPDATE SET level = excluded.level, updated_at = excluded.updated_at
		RETURNING id`
	err := db.q.QueryRowContext(ctx, query, string(p.ResourceType), p.ResourceID, string(p.SubjectType), p.SubjectID,
		string(p.Level), now, now).Scan(&p.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("grant %s on %s", p.Subject(), p.Resource()))
	}

	stored, err := db.FindPermission(ctx, p.Resource(), p.Subject())
	if err != nil {
		return err
	}
	if stored != nil {
		*p = *stored
	}
	return nil
}

// FindPermission returns the grant subject holds on resource, or nil when
// there is none.
func (db *DB) FindPermission(ctx context.Context, resource models.Resource, subject models.Subject) (*models.Permission, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions
		WHERE resource_type = $1 AND resource_id = $2 AND subject_type = $3 AND subject_id = $4`,
		string(resource.Type), resource.ID, string(subject.Type), subject.ID)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("grant %s on %s", subject, resource))
	}
	return p, nil
}

func (db *DB) ListPermissions(ctx context.Context, resource models.Resource) ([]models.Permission, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT `+permissionColumns+` FROM permissions
		WHERE resource_type = $1 AND resource_id = $2 ORDER BY subject_type, subject_id`,
		string(resource.Type), resource.ID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("grants on %s", resource))
	}
	defer rows.Close()

	perms := []models.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, translate(err, "scan grant")
		}
		perms = append(perms, *p)
	}
	return perms, translate(rows.Err(), fmt.Sprintf("grants on %s", resource))
}

func (db *DB) DeletePermission(ctx context.Context, resource models.Resource, subject models.Subject) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM permissions
		WHERE resource_type = $1 AND resource_id = $2 AND subject_type = $3 AND subject_id = $4`,
		string(resource.Type), resource.ID, string(subject.Type), subject.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("revoke %s on %s", subject, resource))
	}
	return expectRow(res, fmt.Sprintf("grant for %s on %s", subject, resource))
}

func (db *DB) DeletePermissionsForResource(ctx context.Context, resource models.Resource) error {
	_, err := db.q.ExecContext(ctx, `DELETE FROM permissions WHERE resource_type = $1 AND resource_id = $2`,
		string(resource.Type), resource.ID)
	return translate(err, fmt.Sprintf("revoke grants on %s", resource))
}

func (db *DB) DeletePermissionsForSubject(ctx context.Context, subject models.Subject) error {
	_, err := db.q.ExecContext(ctx, `DELETE FROM permissions WHERE subject_type = $1 AND subject_id = $2`,
		string(subject.Type), subject.ID)
	return translate(err, fmt.Sprintf("revoke grants of %s", subject))
}
