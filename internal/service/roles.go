package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// RoleService manages user groups.
type RoleService struct {
	roles repository.RoleRepository
	log   *zap.Logger
}

// NewRoleService constructs RoleService.
func NewRoleService(roles repository.RoleRepository, log *zap.Logger) *RoleService {
	return &RoleService{roles: roles, log: log}
}

// List returns roles ordered by name with their members.
func (s *RoleService) List(ctx context.Context, actor model.Claims) ([]model.RoleWithMembers, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.roles.List(ctx)
}

// Get loads one role.
func (s *RoleService) Get(ctx context.Context, actor model.Claims, id int64) (*model.Role, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.roles.Get(ctx, id)
}

func roleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.FieldError("RoleName", "Enter User Group Name")
	}
	return name, nil
}

// Create adds a role with a unique name.
func (s *RoleService) Create(ctx context.Context, actor model.Claims, name string) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	name, err := roleName(name)
	if err != nil {
		return 0, err
	}
	taken, err := s.roles.NameTaken(ctx, name, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, errs.ErrRoleNameTaken
	}
	r := &model.Role{Name: name}
	if err := s.roles.Create(ctx, r); err != nil {
		return 0, err
	}
	s.log.Info("role created", zap.String("actor", actor.Username), zap.Int64("role_id", r.ID))
	return r.ID, nil
}

// Rename changes a non-built-in role's name.
func (s *RoleService) Rename(ctx context.Context, actor model.Claims, id int64, name string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if model.IsProtectedRole(id) {
		return errs.ErrProtectedRole
	}
	name, err := roleName(name)
	if err != nil {
		return err
	}
	taken, err := s.roles.NameTaken(ctx, name, id)
	if err != nil {
		return err
	}
	if taken {
		return errs.ErrRoleNameTaken
	}
	err = s.roles.Rename(ctx, id, name)
	if errors.Is(err, errs.ErrVersionConflict) {
		if _, gerr := s.roles.Get(ctx, id); errors.Is(gerr, errs.ErrNotFound) {
			return errs.ErrNotFound
		}
	}
	return err
}

// RoleInUseError names the role that still has members.
type RoleInUseError struct{ Name string }

func (e *RoleInUseError) Error() string { return "role " + e.Name + " has members" }

// Is matches errs.ErrRoleInUse.
func (e *RoleInUseError) Is(target error) bool { return target == errs.ErrRoleInUse }

// Delete removes a non-built-in role without members.
func (s *RoleService) Delete(ctx context.Context, actor model.Claims, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if model.IsProtectedRole(id) {
		return errs.ErrProtectedRole
	}
	r, err := s.roles.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.roles.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &RoleInUseError{Name: r.Name}
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, errs.ErrRoleInUse) {
			return &RoleInUseError{Name: r.Name}
		}
		return err
	}
	s.log.Info("role deleted", zap.String("actor", actor.Username), zap.Int64("role_id", id))
	return nil
}
