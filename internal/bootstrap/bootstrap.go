// Package bootstrap creates the first admin account on an empty install.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
	"github.com/Doud-FR/Wiki/internal/security"
)

// AdminEmail is the login of the bootstrapped admin.
const AdminEmail = "admin@wiki.local"

// passwordBytes yields a 32 character hex password.
const passwordBytes = 16

// Credentials are shown once to the operator and never stored in plain
// text.
type Credentials struct {
	Email    string
	Password string
}

// Store is the part of *db.DB the bootstrap needs.
type Store interface {
	HasAdmin(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// EnsureAdminExists creates the bootstrap admin when no admin exists and
// returns its credentials. It returns nil when an admin already exists,
// including when a concurrent process won the race to create it.
func EnsureAdminExists(ctx context.Context, store Store, logger *zap.Logger) (*Credentials, error) {
	exists, err := store.HasAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Info("admin user already exists")
		return nil, nil
	}

	password, err := security.RandomHex(passwordBytes)
	if err != nil {
		return nil, apperr.Wrap(err, "generate admin password")
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(err, "hash admin password")
	}

	admin := &models.User{
		Email:        AdminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "User",
		IsAdmin:      true,
		IsActive:     true,
	}
	err = store.CreateUser(ctx, admin)
	if apperr.Is(err, apperr.Conflict) {
		// Another instance inserted the same email first.
		exists, herr := store.HasAdmin(ctx)
		if herr != nil {
			return nil, herr
		}
		if exists {
			logger.Info("admin user created concurrently")
			return nil, nil
		}
		return nil, apperr.Conflictf("%s exists but is not an admin", AdminEmail)
	}
	if err != nil {
		return nil, err
	}

	logger.Warn("admin user created, save this password as it will not be shown again",
		zap.String("email", AdminEmail),
		zap.String("password", password))
	return &Credentials{Email: AdminEmail, Password: password}, nil
}
