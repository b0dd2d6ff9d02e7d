// Package identity manages user accounts, group membership and credential
// checks.
package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/models"
	"github.com/Doud-FR/Wiki/internal/security"
)

type Users struct {
	store  *db.DB
	logger *zap.Logger
}

func NewUsers(store *db.DB, logger *zap.Logger) *Users {
	return &Users{store: store, logger: logger}
}

type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsAdmin   bool
}

func (in *NewUser) normalize() error {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if !validEmail(in.Email) {
		return apperr.Invalidf("valid email required")
	}
	if !security.ValidatePassword(in.Password) {
		return apperr.Invalidf("password must be at least %d characters", security.MinPasswordLength)
	}
	if in.FirstName == "" || in.LastName == "" {
		return apperr.Invalidf("first and last name required")
	}
	return nil
}

// UserUpdate holds the fields to change; nil fields are kept.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	IsAdmin   *bool
	IsActive  *bool
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// Register creates a regular, active account.
func (u *Users) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in.IsAdmin = false
	return u.create(ctx, in)
}

// Create lets an admin create an account, optionally another admin.
func (u *Users) Create(ctx context.Context, actor *models.User, in NewUser) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return u.create(ctx, in)
}

func (u *Users) create(ctx context.Context, in NewUser) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "hash password")
	}
	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsAdmin:      in.IsAdmin,
		IsActive:     true,
	}
	if err := u.store.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.Conflictf("user already exists with this email")
		}
		return nil, err
	}
	u.logger.Info("user created", zap.Int64("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// Authenticate checks email and password. Unknown emails, inactive
// accounts and wrong passwords all fail with the same Unauthenticated
// error.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := u.store.GetUserByEmail(ctx, normalizeEmail(email))
	if apperr.Is(err, apperr.NotFound) {
		return nil, apperr.Unauthenticatedf("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !security.ComparePasswords(user.PasswordHash, password) {
		return nil, apperr.Unauthenticatedf("invalid credentials")
	}
	if err := u.store.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	return u.store.GetUser(ctx, user.ID)
}

// Lookup loads a user for a session. Inactive users are rejected.
func (u *Users) Lookup(ctx context.Context, id int64) (*models.User, error) {
	user, err := u.store.GetUser(ctx, id)
	if apperr.Is(err, apperr.NotFound) {
		return nil, apperr.Unauthenticatedf("session user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticatedf("account is deactivated")
	}
	return user, nil
}

// Get returns a user with its groups. Users may read themselves; admins may
// read anyone.
func (u *Users) Get(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if err := requireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Groups, err = u.store.GroupsForUser(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *Users) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := u.store.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Groups, err = u.store.GroupsForUser(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// Update applies upd to user id. Only admins may change the admin and
// active flags, and the last active admin can be neither demoted nor
// deactivated.
func (u *Users) Update(ctx context.Context, actor *models.User, id int64, upd UserUpdate) (*models.User, error) {
	if err := requireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	if (upd.IsAdmin != nil || upd.IsActive != nil) && !actor.IsAdmin {
		return nil, apperr.Deniedf("only admins can change admin or active status")
	}

	var user *models.User
	err := u.store.Tx(ctx, func(tx *db.DB) error {
		var err error
		if user, err = tx.GetUser(ctx, id); err != nil {
			return err
		}
		wasActiveAdmin := user.IsAdmin && user.IsActive

		if upd.Email != nil {
			email := normalizeEmail(*upd.Email)
			if !validEmail(email) {
				return apperr.Invalidf("valid email required")
			}
			user.Email = email
		}
		if upd.FirstName != nil {
			user.FirstName = strings.TrimSpace(*upd.FirstName)
		}
		if upd.LastName != nil {
			user.LastName = strings.TrimSpace(*upd.LastName)
		}
		if upd.IsAdmin != nil {
			user.IsAdmin = *upd.IsAdmin
		}
		if upd.IsActive != nil {
			user.IsActive = *upd.IsActive
		}

		if wasActiveAdmin && !(user.IsAdmin && user.IsActive) {
			if err := guardLastAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := tx.UpdateUser(ctx, user); err != nil {
			if apperr.Is(err, apperr.Conflict) {
				return apperr.Conflictf("email already in use")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("user updated", zap.Int64("user_id", id), zap.Int64("actor_id", actor.ID))
	return user, nil
}

// Delete removes user id. The last active admin cannot be deleted.
func (u *Users) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := u.store.Tx(ctx, func(tx *db.DB) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user.IsAdmin && user.IsActive {
			if err := guardLastAdmin(ctx, tx); err != nil {
				return err
			}
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	u.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

// ChangePassword replaces the password of user id after verifying the
// current one.
func (u *Users) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !security.ComparePasswords(user.PasswordHash, current) {
		return apperr.Invalidf("current password is incorrect")
	}
	if !security.ValidatePassword(next) {
		return apperr.Invalidf("password must be at least %d characters", security.MinPasswordLength)
	}
	hash, err := security.HashPassword(next)
	if err != nil {
		return apperr.Wrap(err, "hash password")
	}
	return u.store.SetPassword(ctx, id, hash)
}

// guardLastAdmin fails when the user about to lose admin rights is the only
// active admin left.
func guardLastAdmin(ctx context.Context, tx *db.DB) error {
	n, err := tx.LockActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return apperr.Conflictf("cannot remove the last admin")
	}
	return nil
}

func requireAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin {
		return apperr.Deniedf("admin access required")
	}
	return nil
}

func requireSelfOrAdmin(actor *models.User, id int64) error {
	if actor == nil || (actor.ID != id && !actor.IsAdmin) {
		return apperr.Deniedf("access denied")
	}
	return nil
}
