package repository

import (
	"context"

	"github.com/and161185/useradmin/internal/model"
)

// RoleRepository provides CRUD access for roles (user groups).
type RoleRepository interface {
	// List returns roles ordered by name with member usernames.
	List(ctx context.Context) ([]model.RoleWithMembers, error)
	// Get loads a role by ID.
	Get(ctx context.Context, id int64) (*model.Role, error)
	// Create inserts a role and fills its ID.
	Create(ctx context.Context, r *model.Role) error
	// Rename changes the role name. Returns ErrVersionConflict when no row matched.
	Rename(ctx context.Context, id int64, name string) error
	// NameTaken reports whether another role (id != exceptID) uses name.
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	// CountMembers counts accounts assigned to the role.
	CountMembers(ctx context.Context, id int64) (int, error)
	// Delete removes a role without members.
	Delete(ctx context.Context, id int64) error
}
