package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	pkgcrypto "github.com/and161185/useradmin/internal/crypto"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
)

func newUserSvc(t *testing.T) (*UserService, *fakeUsers) {
	users := newFakeUsers()
	return NewUserService(users, newFakeRoles(), zaptest.NewLogger(t)), users
}

func TestUsers_AdminGate(t *testing.T) {
	t.Parallel()
	s, _ := newUserSvc(t)
	ctx := context.Background()

	_, err := s.List(ctx, userClaims)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.Create(ctx, userClaims, AccountInput{})
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.ErrorIs(t, s.Update(ctx, userClaims, 1, AccountInput{}), errs.ErrForbidden)
	require.ErrorIs(t, s.Deactivate(ctx, userClaims, 1), errs.ErrForbidden)
	require.ErrorIs(t, s.Activate(ctx, userClaims, 1), errs.ErrForbidden)
	require.ErrorIs(t, s.ResetPassword(ctx, userClaims, 1, "a", "a"), errs.ErrForbidden)
}

func TestUsers_Create(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()

	in := AccountInput{
		FullName: "Zed", Username: "zed", Email: "zed@example.com", PhoneNo: "01686000000",
		RoleID: 99, Password: "secret1", ConfirmPassword: "secret1",
	}
	_, err := s.Create(ctx, adminClaims, in)
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "Select User Group", ve.Fields["RoleID"])

	in.RoleID = model.RoleAdmin
	in.IsActive = false
	id, err := s.Create(ctx, adminClaims, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got := users.rows[id]
	require.Equal(t, model.RoleAdmin, got.RoleID)
	require.False(t, got.IsActive)
	require.True(t, pkgcrypto.VerifyPassword("secret1", got.PasswordHash, got.PasswordSalt))

	in.Email = "other@example.com"
	_, err = s.Create(ctx, adminClaims, in)
	require.ErrorIs(t, err, errs.ErrUsernameTaken)

	in.PhoneNo = "016860000001"
	_, err = s.Create(ctx, adminClaims, in)
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "PhoneNo")
}

func TestUsers_Update(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()
	seedUser(t, users, "admin", "secret1", model.RoleAdmin, true)
	a := seedUser(t, users, "alice", "secret1", model.RoleUser, true)
	seedUser(t, users, "bob", "secret1", model.RoleUser, true)
	oldHash := a.PasswordHash

	in := AccountInput{
		FullName: "Alice B", Username: "alice", Email: "alice@example.com",
		RoleID: model.RoleUser, IsActive: true, Password: "ignored", ConfirmPassword: "nope",
	}
	require.NoError(t, s.Update(ctx, adminClaims, a.ID, in))
	require.Equal(t, "Alice B", users.rows[a.ID].FullName)
	require.Equal(t, oldHash, users.rows[a.ID].PasswordHash)

	in.Username = "bob"
	require.ErrorIs(t, s.Update(ctx, adminClaims, a.ID, in), errs.ErrUsernameTaken)
	in.Username = "alice"
	in.Email = "bob@example.com"
	require.ErrorIs(t, s.Update(ctx, adminClaims, a.ID, in), errs.ErrEmailTaken)

	in.Email = "alice@example.com"
	require.ErrorIs(t, s.Update(ctx, adminClaims, 404, in), errs.ErrNotFound)
}

func TestUsers_Update_ConflictOnVanishedRow(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()
	a := seedUser(t, users, "alice", "secret1", model.RoleUser, true)
	in := AccountInput{FullName: "A", Username: "alice", Email: "alice@example.com", RoleID: model.RoleUser, IsActive: true}

	users.updateErr = errs.ErrVersionConflict
	require.ErrorIs(t, s.Update(ctx, adminClaims, a.ID, in), errs.ErrVersionConflict)

	users.updateErr = nil
	users.vanishOnUpdate = true
	require.ErrorIs(t, s.Update(ctx, adminClaims, a.ID, in), errs.ErrNotFound)
}

func TestUsers_LastAdminAndSelfDeactivate(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()
	root := seedUser(t, users, "root", "secret1", model.RoleAdmin, true)
	other := seedUser(t, users, "other", "secret1", model.RoleAdmin, true)
	actor := model.Claims{UserID: root.ID, Username: "root", RoleID: model.RoleAdmin}

	require.ErrorIs(t, s.Deactivate(ctx, actor, root.ID), errs.ErrSelfDeactivate)

	in := AccountInput{FullName: "Root", Username: "root", Email: "root@example.com", RoleID: model.RoleAdmin}
	require.ErrorIs(t, s.Update(ctx, actor, root.ID, in), errs.ErrSelfDeactivate)

	require.NoError(t, s.Deactivate(ctx, actor, other.ID))
	require.False(t, users.rows[other.ID].IsActive)

	in.IsActive = true
	in.RoleID = model.RoleUser
	if err := s.Update(ctx, actor, root.ID, in); !errors.Is(err, errs.ErrLastAdmin) {
		t.Fatalf("demoting last admin: want ErrLastAdmin, got %v", err)
	}

	require.NoError(t, s.Activate(ctx, actor, other.ID))
	require.NoError(t, s.Update(ctx, actor, root.ID, in))
	require.Equal(t, model.RoleUser, users.rows[root.ID].RoleID)

	system := SystemActor
	require.ErrorIs(t, s.Deactivate(ctx, system, other.ID), errs.ErrLastAdmin)
}

func TestUsers_ResetPassword(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()
	u := seedUser(t, users, "alice", "secret1", model.RoleUser, true)
	tok := "pending"
	users.rows[u.ID].ResetToken = &tok

	cases := []struct{ pw, confirm, field, msg string }{
		{"", "x", "NewPassword", "Please enter both password fields."},
		{"abcdef", "abcdeg", "ConfirmPassword", "Passwords do not match."},
		{"abc", "abc", "NewPassword", "Password must be at least 6 characters long."},
	}
	for _, tc := range cases {
		var ve *errs.ValidationError
		require.ErrorAs(t, s.ResetPassword(ctx, adminClaims, u.ID, tc.pw, tc.confirm), &ve)
		require.Equal(t, tc.msg, ve.Fields[tc.field])
	}

	require.ErrorIs(t, s.ResetPassword(ctx, adminClaims, 404, "newpass", "newpass"), errs.ErrNotFound)
	require.NoError(t, s.ResetPassword(ctx, adminClaims, u.ID, "newpass", "newpass"))
	row := users.rows[u.ID]
	require.True(t, pkgcrypto.VerifyPassword("newpass", row.PasswordHash, row.PasswordSalt))
	require.Nil(t, row.ResetToken)
}

func TestUsers_ListAndRoles(t *testing.T) {
	t.Parallel()
	s, users := newUserSvc(t)
	ctx := context.Background()
	seedUser(t, users, "zoe", "secret1", model.RoleUser, true)
	seedUser(t, users, "adam", "secret1", model.RoleAdmin, true)

	list, err := s.List(ctx, adminClaims)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "adam", list[0].Username)
	require.Equal(t, "Admin", list[0].RoleName)

	roles, err := s.Roles(ctx, adminClaims)
	require.NoError(t, err)
	require.Len(t, roles, 2)
}
