package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/and161185/useradmin/internal/convert"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/service"
)

type userForm struct {
	FullName        string `form:"FullName"`
	Username        string `form:"Username"`
	Email           string `form:"Email"`
	PhoneNo         string `form:"PhoneNo"`
	RoleID          int64  `form:"RoleID"`
	IsActive        bool   `form:"IsActive"`
	Password        string `form:"Password"`
	ConfirmPassword string `form:"ConfirmPassword"`
}

func (f userForm) input() service.AccountInput {
	return service.AccountInput{
		FullName:        f.FullName,
		Username:        f.Username,
		Email:           f.Email,
		PhoneNo:         f.PhoneNo,
		RoleID:          f.RoleID,
		IsActive:        f.IsActive,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
	}
}

// pathID parses the :id segment; a malformed value is reported as not found.
func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(c, errs.ErrNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) listUsers(c *gin.Context) {
	us, err := s.users.List(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToUserViews(us))
}

func (s *Server) createUserForm(c *gin.Context) {
	roles, err := s.users.Roles(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, gin.H{"roles": convert.ToRoleViews(roles)})
}

func (s *Server) createUser(c *gin.Context) {
	var f userForm
	if !s.bind(c, &f) {
		return
	}
	if _, err := s.users.Create(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), f.input()); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("User '%s' created successfully!", strings.TrimSpace(f.FullName)), PathUsers)
}

func (s *Server) editUserForm(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	ctx, actor := c.Request.Context(), ClaimsFromCtx(c.Request.Context())
	u, err := s.users.Get(ctx, actor, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	roles, err := s.users.Roles(ctx, actor)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, gin.H{"user": convert.ToUserView(*u), "roles": convert.ToRoleViews(roles)})
}

func (s *Server) editUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var f userForm
	if !s.bind(c, &f) {
		return
	}
	if err := s.users.Update(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id, f.input()); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("User '%s' updated successfully!", strings.TrimSpace(f.FullName)), PathUsers)
}

// userName resolves the display name used in flash messages.
func (s *Server) userName(c *gin.Context, id int64) (string, error) {
	u, err := s.users.Get(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	if err != nil {
		return "", err
	}
	return u.FullName, nil
}

func (s *Server) deactivateUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	name, err := s.userName(c, id)
	if err == nil {
		err = s.users.Deactivate(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	}
	if err != nil {
		s.failTo(c, err, PathUsers)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("User '%s' has been deactivated successfully!", name), PathUsers)
}

func (s *Server) activateUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	name, err := s.userName(c, id)
	if err == nil {
		err = s.users.Activate(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	}
	if err != nil {
		s.failTo(c, err, PathUsers)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("User '%s' has been activated successfully!", name), PathUsers)
}

func (s *Server) adminResetPassword(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	back := PathUsers + "/Edit/" + strconv.FormatInt(id, 10)
	name, err := s.userName(c, id)
	if err == nil {
		err = s.users.ResetPassword(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id,
			c.PostForm("NewPassword"), c.PostForm("ConfirmPassword"))
	}
	if err != nil {
		s.failTo(c, err, back)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("Password for '%s' has been reset successfully!", name), PathUsers)
}

func (s *Server) listRoles(c *gin.Context) {
	rs, err := s.roles.List(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToRoleViews(rs))
}

func (s *Server) createRole(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("RoleName"))
	if _, err := s.roles.Create(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), name); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, fmt.Sprintf("User Group '%s' created successfully!", name), PathUserGroups)
}

func (s *Server) editRoleForm(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	r, err := s.roles.Get(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, gin.H{"role_id": r.ID, "role_name": r.Name, "protected": r.Protected()})
}

func (s *Server) renameRole(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(c.PostForm("RoleName"))
	err := s.roles.Rename(c.Request.Context(), ClaimsFromCtx(c.Request.Context()), id, name)
	switch {
	case errors.Is(err, errs.ErrProtectedRole):
		s.redirect(c, FlashError, MsgProtectedEdit, PathUserGroups)
	case err != nil:
		s.fail(c, err)
	default:
		s.redirect(c, FlashSuccess, fmt.Sprintf("User Group '%s' updated successfully!", name), PathUserGroups)
	}
}

func (s *Server) deleteRole(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	ctx, actor := c.Request.Context(), ClaimsFromCtx(c.Request.Context())
	r, err := s.roles.Get(ctx, actor, id)
	if err == nil {
		err = s.roles.Delete(ctx, actor, id)
	}
	switch {
	case errors.Is(err, errs.ErrProtectedRole):
		s.redirect(c, FlashError, MsgProtectedDelete, PathUserGroups)
	case err != nil:
		s.failTo(c, err, PathUserGroups)
	default:
		s.redirect(c, FlashSuccess, fmt.Sprintf("User Group '%s' deleted successfully!", r.Name), PathUserGroups)
	}
}
