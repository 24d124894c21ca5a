// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// UserRepository provides access to accounts and their credentials.
type UserRepository interface {
	// Create inserts a new account and fills ID and CreatedAt.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads an account joined with its role.
	GetByID(ctx context.Context, id int64) (*model.UserWithRole, error)
	// GetByUsername loads an account by exact username.
	GetByUsername(ctx context.Context, username string) (*model.UserWithRole, error)
	// GetByEmail loads an account by exact email.
	GetByEmail(ctx context.Context, email string) (*model.UserWithRole, error)
	// List returns all accounts ordered by full name.
	List(ctx context.Context) ([]model.UserWithRole, error)
	// UsernameTaken reports whether another account (id != exceptID) uses username.
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	// EmailTaken reports whether another account (id != exceptID) uses email.
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	// Update writes profile fields, role and active flag. Returns ErrVersionConflict when no row matched.
	Update(ctx context.Context, u *model.User) error
	// SetActive flips the soft-delete flag.
	SetActive(ctx context.Context, id int64, active bool) error
	// CountActiveAdmins counts active accounts holding the admin role.
	CountActiveAdmins(ctx context.Context) (int, error)
	// SetPassword replaces the credential and clears any pending reset token.
	SetPassword(ctx context.Context, id int64, hash, salt string) error
	// SetResetToken stores a pending reset token, overwriting any previous one.
	SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error
	// ConsumeResetToken atomically swaps the credential when email, token, expiry and
	// active flag all match; it reports whether a row was updated.
	ConsumeResetToken(ctx context.Context, email, token string, now time.Time, hash, salt string) (bool, error)
}
