package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/useradmin/internal/crypto"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// UserService is the admin-only account management.
type UserService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	log   *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, log *zap.Logger) *UserService {
	return &UserService{users: users, roles: roles, log: log}
}

// List returns all accounts ordered by full name.
func (s *UserService) List(ctx context.Context, actor model.Claims) ([]model.UserWithRole, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, actor model.Claims, id int64) (*model.UserWithRole, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// Roles lists the roles an account can be assigned.
func (s *UserService) Roles(ctx context.Context, actor model.Claims) ([]model.RoleWithMembers, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.roles.List(ctx)
}

func (s *UserService) checkRole(ctx context.Context, v *errs.ValidationError, roleID int64) error {
	if roleID <= 0 {
		v.Add("RoleID", "Select User Group")
		return nil
	}
	if _, err := s.roles.Get(ctx, roleID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			v.Add("RoleID", "Select User Group")
			return nil
		}
		return err
	}
	return nil
}

// Create adds an account with an admin-chosen role and active flag.
func (s *UserService) Create(ctx context.Context, actor model.Claims, in AccountInput) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	in.trim()
	v := errs.NewValidation()
	validateProfile(v, in)
	validatePassword(v, "Password", in.Password, in.ConfirmPassword)
	if err := s.checkRole(ctx, v, in.RoleID); err != nil {
		return 0, err
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}
	if err := checkUnique(ctx, s.users, in.Username, in.Email, 0); err != nil {
		return 0, err
	}

	hash, salt, err := pkgcrypto.SetPassword(in.Password)
	if err != nil {
		return 0, err
	}
	u := &model.User{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PhoneNo:      in.PhoneNo,
		RoleID:       in.RoleID,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsActive:     in.IsActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return 0, err
	}
	s.log.Info("account created", zap.String("actor", actor.Username), zap.Int64("user_id", u.ID))
	return u.ID, nil
}

// Update edits profile fields, role and active flag. Password fields are ignored.
// An update that touches no row is re-checked once: a vanished account is ErrNotFound.
func (s *UserService) Update(ctx context.Context, actor model.Claims, id int64, in AccountInput) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	in.trim()
	v := errs.NewValidation()
	validateProfile(v, in)
	if err := s.checkRole(ctx, v, in.RoleID); err != nil {
		return err
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkUnique(ctx, s.users, in.Username, in.Email, id); err != nil {
		return err
	}
	if err := s.guardAdminLoss(ctx, actor, cur, in.RoleID, in.IsActive); err != nil {
		return err
	}

	u := cur.User
	u.FullName = in.FullName
	u.Username = in.Username
	u.Email = in.Email
	u.PhoneNo = in.PhoneNo
	u.RoleID = in.RoleID
	u.IsActive = in.IsActive

	err = s.users.Update(ctx, &u)
	if errors.Is(err, errs.ErrVersionConflict) {
		if _, gerr := s.users.GetByID(ctx, id); errors.Is(gerr, errs.ErrNotFound) {
			return errs.ErrNotFound
		}
	}
	return err
}

// guardAdminLoss rejects edits that would leave no active admin or lock the actor out.
func (s *UserService) guardAdminLoss(ctx context.Context, actor model.Claims, cur *model.UserWithRole, roleID int64, active bool) error {
	if cur.ID == actor.UserID && !active {
		return errs.ErrSelfDeactivate
	}
	wasAdmin := cur.IsActive && cur.RoleID == model.RoleAdmin
	staysAdmin := active && roleID == model.RoleAdmin
	if !wasAdmin || staysAdmin {
		return nil
	}
	n, err := s.users.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errs.ErrLastAdmin
	}
	return nil
}

// Deactivate soft-deletes an account.
func (s *UserService) Deactivate(ctx context.Context, actor model.Claims, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return errs.ErrSelfDeactivate
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardAdminLoss(ctx, actor, cur, cur.RoleID, false); err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.log.Info("account deactivated", zap.String("actor", actor.Username), zap.Int64("user_id", id))
	return nil
}

// Activate restores a deactivated account.
func (s *UserService) Activate(ctx context.Context, actor model.Claims, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.users.SetActive(ctx, id, true)
}

// ResetPassword sets a new password chosen by an admin and clears any pending reset token.
func (s *UserService) ResetPassword(ctx context.Context, actor model.Claims, id int64, newPassword, confirm string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	switch {
	case newPassword == "" || confirm == "":
		return errs.FieldError("NewPassword", "Please enter both password fields.")
	case newPassword != confirm:
		return errs.FieldError("ConfirmPassword", "Passwords do not match.")
	case len(newPassword) < MinPasswordLen:
		return errs.FieldError("NewPassword", "Password must be at least 6 characters long.")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	hash, salt, err := pkgcrypto.SetPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, id, hash, salt); err != nil {
		return err
	}
	s.log.Info("password reset by admin", zap.String("actor", actor.Username), zap.Int64("user_id", id))
	return nil
}
