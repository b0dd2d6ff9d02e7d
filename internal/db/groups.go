package db

import (
	"context"
	"fmt"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
)

const groupColumns = `g.id, g.name, g.description, g.is_active, g.created_at, g.updated_at,
	(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)`

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(&group.ID, &group.Name, &group.Description, &group.IsActive,
		&group.CreatedAt, &group.UpdatedAt, &group.MemberCount)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (db *DB) queryGroups(ctx context.Context, what, query string, args ...interface{}) ([]models.Group, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, what)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, translate(err, "scan group")
		}
		groups = append(groups, *group)
	}
	return groups, translate(rows.Err(), what)
}

func (db *DB) CreateGroup(ctx context.Context, group *models.Group) error {
	now := db.now()
	query := `INSERT INTO user_groups (name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := db.q.QueryRowContext(ctx, query, group.Name, group.Description, group.IsActive, now, now).Scan(&group.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("group %q", group.Name))
	}
	group.CreatedAt, group.UpdatedAt = now, now
	return nil
}

func (db *DB) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM user_groups g WHERE g.id = $1`, id)
	group, err := scanGroup(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("group %d", id))
	}
	return group, nil
}

func (db *DB) GetAllGroups(ctx context.Context) ([]models.Group, error) {
	return db.queryGroups(ctx, "list groups",
		`SELECT `+groupColumns+` FROM user_groups g ORDER BY g.created_at DESC, g.id DESC`)
}

// GroupsForUser returns the groups userID is a member of, ordered by id.
func (db *DB) GroupsForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	return db.queryGroups(ctx, fmt.Sprintf("groups of user %d", userID),
		`SELECT `+groupColumns+` FROM user_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1 ORDER BY g.id`, userID)
}

func (db *DB) UpdateGroup(ctx context.Context, group *models.Group) error {
	now := db.now()
	res, err := db.q.ExecContext(ctx,
		`UPDATE user_groups SET name = $1, description = $2, is_active = $3, updated_at = $4 WHERE id = $5`,
		group.Name, group.Description, group.IsActive, now, group.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("group %q", group.Name))
	}
	if err := expectRow(res, fmt.Sprintf("group %d", group.ID)); err != nil {
		return err
	}
	group.UpdatedAt = now
	return nil
}

// DeleteGroup removes the group, its memberships and the grants it holds.
func (db *DB) DeleteGroup(ctx context.Context, id int64) error {
	return db.Tx(ctx, func(tx *DB) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1`, id); err != nil {
			return translate(err, "delete memberships")
		}
		if err := tx.DeletePermissionsForSubject(ctx, models.Subject{Type: models.SubjectGroup, ID: id}); err != nil {
			return err
		}
		res, err := tx.q.ExecContext(ctx, `DELETE FROM user_groups WHERE id = $1`, id)
		if err != nil {
			return translate(err, fmt.Sprintf("delete group %d", id))
		}
		return expectRow(res, fmt.Sprintf("group %d", id))
	})
}

func (db *DB) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := db.q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, created_at) VALUES ($1, $2, $3)`,
		groupID, userID, db.now())
	if isUniqueViolation(err) {
		return apperr.WithKind(err, apperr.Conflict, "user is already a member of this group")
	}
	return translate(err, fmt.Sprintf("add user %d to group %d", userID, groupID))
}

func (db *DB) RemoveMember(ctx context.Context, groupID, userID int64) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return translate(err, fmt.Sprintf("remove user %d from group %d", userID, groupID))
	}
	return expectRow(res, fmt.Sprintf("membership of user %d in group %d", userID, groupID))
}

func (db *DB) GroupMembers(ctx context.Context, groupID int64) ([]models.User, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT `+prefixed("u.", userColumns)+` FROM users u
		JOIN group_members gm ON gm.user_id = u.id
		WHERE gm.group_id = $1 ORDER BY u.id`, groupID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("members of group %d", groupID))
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "scan member")
		}
		users = append(users, *user)
	}
	return users, translate(rows.Err(), "list members")
}
