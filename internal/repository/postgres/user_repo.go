package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

const userSelect = `
SELECT a.user_id, a.full_name, a.user_name, a.email, a.phone_no, a.role_id,
       a.password_hash, a.password_salt, a.reset_token, a.reset_token_expiry,
       a.created_at, a.is_active, r.role_name
FROM accounts a JOIN roles r ON r.role_id = a.role_id`

func scanUser(row scanner) (*model.UserWithRole, error) {
	var u model.UserWithRole
	var phone *string
	if err := row.Scan(
		&u.ID, &u.FullName, &u.Username, &u.Email, &phone, &u.RoleID,
		&u.PasswordHash, &u.PasswordSalt, &u.ResetToken, &u.ResetTokenExpiry,
		&u.CreatedAt, &u.IsActive, &u.RoleName,
	); err != nil {
		return nil, err
	}
	if phone != nil {
		u.PhoneNo = *phone
	}
	return &u, nil
}

// mapAccountWriteErr translates constraint violations raised by INSERT/UPDATE on accounts.
func mapAccountWriteErr(err error) error {
	if name, ok := isUniqueViolation(err); ok {
		switch name {
		case "accounts_user_name_key":
			return errs.ErrUsernameTaken
		case "accounts_email_key":
			return errs.ErrEmailTaken
		default:
			return errs.ErrAlreadyExists
		}
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("role: %w", errs.ErrNotFound)
	}
	return err
}

// Create inserts a new account row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO accounts (full_name, user_name, email, phone_no, role_id, password_hash, password_salt, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING user_id, created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		u.FullName, u.Username, u.Email, nullString(u.PhoneNo), u.RoleID, u.PasswordHash, u.PasswordSalt, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	return mapAccountWriteErr(err)
}

// GetByID selects an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.UserWithRole, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, userSelect+` WHERE a.user_id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByUsername selects an account by username, ignoring case.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.UserWithRole, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, userSelect+` WHERE lower(a.user_name) = lower($1)`, username))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByEmail selects an account by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.UserWithRole, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, userSelect+` WHERE lower(a.email) = lower($1)`, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// List returns all accounts ordered by full name.
func (r *UserRepo) List(ctx context.Context) ([]model.UserWithRole, error) {
	rows, err := r.db.Pool.Query(ctx, userSelect+` ORDER BY a.full_name, a.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserWithRole
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UsernameTaken checks username uniqueness excluding exceptID.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(user_name) = lower($1) AND user_id <> $2)`
	var taken bool
	err := r.db.Pool.QueryRow(ctx, q, username, exceptID).Scan(&taken)
	return taken, err
}

// EmailTaken checks email uniqueness excluding exceptID.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1) AND user_id <> $2)`
	var taken bool
	err := r.db.Pool.QueryRow(ctx, q, email, exceptID).Scan(&taken)
	return taken, err
}

// Update writes editable account fields.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE accounts
SET full_name = $2, user_name = $3, email = $4, phone_no = $5, role_id = $6, is_active = $7
WHERE user_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.FullName, u.Username, u.Email, nullString(u.PhoneNo), u.RoleID, u.IsActive)
	if err != nil {
		return mapAccountWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// SetActive toggles is_active.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE accounts SET is_active = $2 WHERE user_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountActiveAdmins counts active admin accounts.
func (r *UserRepo) CountActiveAdmins(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM accounts WHERE role_id = $1 AND is_active`
	var n int
	err := r.db.Pool.QueryRow(ctx, q, model.RoleAdmin).Scan(&n)
	return n, err
}

// SetPassword replaces hash and salt and drops any pending reset token.
func (r *UserRepo) SetPassword(ctx context.Context, id int64, hash, salt string) error {
	const q = `
UPDATE accounts
SET password_hash = $2, password_salt = $3, reset_token = NULL, reset_token_expiry = NULL
WHERE user_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetResetToken stores token and expiry; last writer wins.
func (r *UserRepo) SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	const q = `UPDATE accounts SET reset_token = $2, reset_token_expiry = $3 WHERE user_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, token, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ConsumeResetToken rewrites the credential only for a matching, unexpired token of an active account.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, email, token string, now time.Time, hash, salt string) (bool, error) {
	const q = `
UPDATE accounts
SET password_hash = $4, password_salt = $5, reset_token = NULL, reset_token_expiry = NULL
WHERE lower(email) = lower($1) AND reset_token = $2 AND reset_token_expiry > $3 AND is_active`
	tag, err := r.db.Pool.Exec(ctx, q, email, token, now, hash, salt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
