package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, is_admin, is_active, last_login_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.IsAdmin, &user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = nullTime(lastLogin)
	return user, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := db.now()
	query := `INSERT INTO users (email, password_hash, first_name, last_name, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := db.q.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.IsAdmin, user.IsActive, now, now).Scan(&user.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("create user %s", user.Email))
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %d", id))
	}
	return user, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %s", email))
	}
	return user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, translate(err, "list users")
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "scan user")
		}
		users = append(users, *user)
	}
	return users, translate(rows.Err(), "list users")
}

// UpdateUser writes the profile and flag columns of user. The password hash
// is changed only through SetPassword.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	now := db.now()
	query := `UPDATE users SET email = $1, first_name = $2, last_name = $3, is_admin = $4, is_active = $5, updated_at = $6
		WHERE id = $7`
	res, err := db.q.ExecContext(ctx, query, user.Email, user.FirstName, user.LastName,
		user.IsAdmin, user.IsActive, now, user.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("update user %d", user.ID))
	}
	if err := expectRow(res, fmt.Sprintf("user %d", user.ID)); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

func (db *DB) SetPassword(ctx context.Context, userID int64, hash string) error {
	res, err := db.q.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, db.now(), userID)
	if err != nil {
		return translate(err, fmt.Sprintf("set password of user %d", userID))
	}
	return expectRow(res, fmt.Sprintf("user %d", userID))
}

func (db *DB) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := db.q.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, db.now(), userID)
	return translate(err, fmt.Sprintf("touch last login of user %d", userID))
}

// DeleteUser removes the user together with its memberships and the grants
// it holds directly.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	return db.Tx(ctx, func(tx *DB) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM group_members WHERE user_id = $1`, id); err != nil {
			return translate(err, "delete memberships")
		}
		if err := tx.DeletePermissionsForSubject(ctx, models.Subject{Type: models.SubjectUser, ID: id}); err != nil {
			return err
		}
		res, err := tx.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return translate(err, fmt.Sprintf("delete user %d", id))
		}
		return expectRow(res, fmt.Sprintf("user %d", id))
	})
}

func (db *DB) CountAdmins(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE is_admin = $1`
	if activeOnly {
		query += ` AND is_active = $1`
	}
	var n int
	if err := db.q.QueryRowContext(ctx, query, true).Scan(&n); err != nil {
		return 0, translate(err, "count admins")
	}
	return n, nil
}

// LockActiveAdmins counts active admins inside a transaction. On PostgreSQL
// the admin rows stay locked until the transaction ends, so two concurrent
// demotions cannot both see the other admin. SQLite runs one connection and
// needs no lock.
func (db *DB) LockActiveAdmins(ctx context.Context) (int, error) {
	rows, err := db.q.QueryContext(ctx, activeAdminsQuery(db.driver), true)
	if err != nil {
		return 0, translate(err, "lock admins")
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, translate(err, "lock admins")
	}
	return n, nil
}

func activeAdminsQuery(driver string) string {
	query := `SELECT id FROM users WHERE is_admin = $1 AND is_active = $1 ORDER BY id`
	if driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	return query
}

func (db *DB) HasAdmin(ctx context.Context) (bool, error) {
	n, err := db.CountAdmins(ctx, false)
	return n > 0, err
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(err, "rows affected")
	}
	if n == 0 {
		return apperr.NotFoundf("%s not found", what)
	}
	return nil
}
