package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
)

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

func mapRoleWriteErr(err error) error {
	if _, ok := isUniqueViolation(err); ok {
		return errs.ErrRoleNameTaken
	}
	return err
}

// List returns roles ordered by name with their member usernames.
func (r *RoleRepo) List(ctx context.Context) ([]model.RoleWithMembers, error) {
	const q = `
SELECT r.role_id, r.role_name,
       COALESCE(array_agg(a.user_name ORDER BY a.user_name) FILTER (WHERE a.user_id IS NOT NULL), '{}')
FROM roles r LEFT JOIN accounts a ON a.role_id = r.role_id
GROUP BY r.role_id, r.role_name
ORDER BY r.role_name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleWithMembers
	for rows.Next() {
		var rm model.RoleWithMembers
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Members); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Get selects a role by ID.
func (r *RoleRepo) Get(ctx context.Context, id int64) (*model.Role, error) {
	const q = `SELECT role_id, role_name FROM roles WHERE role_id = $1`
	var role model.Role
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&role.ID, &role.Name); err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// Create inserts a new role.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	const q = `INSERT INTO roles (role_name) VALUES ($1) RETURNING role_id`
	return mapRoleWriteErr(r.db.Pool.QueryRow(ctx, q, role.Name).Scan(&role.ID))
}

// Rename updates a role name.
func (r *RoleRepo) Rename(ctx context.Context, id int64, name string) error {
	const q = `UPDATE roles SET role_name = $2 WHERE role_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return mapRoleWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// NameTaken checks role name uniqueness excluding exceptID.
func (r *RoleRepo) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM roles WHERE role_name = $1 AND role_id <> $2)`
	var taken bool
	err := r.db.Pool.QueryRow(ctx, q, name, exceptID).Scan(&taken)
	return taken, err
}

// CountMembers counts accounts assigned to a role.
func (r *RoleRepo) CountMembers(ctx context.Context, id int64) (int, error) {
	const q = `SELECT count(*) FROM accounts WHERE role_id = $1`
	var n int
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&n)
	return n, err
}

// Delete removes a role inside a transaction that locks the row and re-checks membership.
func (r *RoleRepo) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const lock = `SELECT role_id FROM roles WHERE role_id = $1 FOR UPDATE`
	var got int64
	if err = tx.QueryRow(ctx, lock, id).Scan(&got); err != nil {
		return notFound(err)
	}

	const members = `SELECT count(*) FROM accounts WHERE role_id = $1`
	var n int
	if err = tx.QueryRow(ctx, members, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrRoleInUse
	}

	const del = `DELETE FROM roles WHERE role_id = $1`
	if _, err = tx.Exec(ctx, del, id); err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrRoleInUse
		}
		return err
	}
	return nil
}
