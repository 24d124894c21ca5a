package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/convert"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/service"
	"github.com/and161185/useradmin/internal/session"
)

type loginForm struct {
	Username   string `form:"Username"`
	Password   string `form:"Password"`
	RememberMe bool   `form:"RememberMe"`
}

type registerForm struct {
	FullName        string `form:"FullName"`
	Username        string `form:"Username"`
	Email           string `form:"Email"`
	PhoneNo         string `form:"PhoneNo"`
	Password        string `form:"Password"`
	ConfirmPassword string `form:"ConfirmPassword"`
}

type resetForm struct {
	Email           string `form:"Email"`
	Token           string `form:"Token"`
	NewPassword     string `form:"NewPassword"`
	ConfirmPassword string `form:"ConfirmPassword"`
}

type changePasswordForm struct {
	CurrentPassword string `form:"CurrentPassword"`
	NewPassword     string `form:"NewPassword"`
	ConfirmPassword string `form:"ConfirmPassword"`
}

type homeView struct {
	User    *convert.ClaimsView `json:"user"`
	IsAdmin bool                `json:"is_admin"`
}

func (s *Server) home(c *gin.Context) {
	claims := ClaimsFromCtx(c.Request.Context())
	v := homeView{IsAdmin: claims.IsAdmin()}
	if claims.Authenticated() {
		cv := convert.ToClaimsView(claims)
		v.User = &cv
	}
	s.view(c, http.StatusOK, v)
}

func (s *Server) loginView(c *gin.Context) {
	username := ""
	remembered := false
	if ck, err := c.Request.Cookie(RememberCookieName); err == nil {
		username, remembered = s.auth.RememberedUsername(ck.Value)
	}
	s.view(c, http.StatusOK, gin.H{"username": username, "remember_me": remembered})
}

func (s *Server) login(c *gin.Context) {
	var f loginForm
	if !s.bind(c, &f) {
		return
	}
	ctx := c.Request.Context()
	res, err := s.auth.Login(ctx, service.LoginInput{
		Username:  f.Username,
		Password:  f.Password,
		ClientIP:  service.ClientIP(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr),
		PeerIP:    c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	// a new login never reuses the previous session ID
	if old, ok := SessionFromCtx(ctx); ok {
		if err := s.sessions.Delete(ctx, old.ID); err != nil {
			s.log.Warn("drop previous session", zap.Error(err))
		}
	}
	id, err := session.GenerateID()
	if err != nil {
		s.fail(c, err)
		return
	}
	now := s.now()
	sess := session.Session{
		ID:         id,
		Claims:     res.Claims,
		AuditLogID: res.AuditLogID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.opts.IdleTimeout),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if lerr := s.auth.Logout(ctx, res.Claims, res.AuditLogID); lerr != nil {
			s.log.Warn("close audit entry", zap.Error(lerr))
		}
		s.fail(c, err)
		return
	}
	session.SetCookie(c.Writer, id, s.opts.Cookie)

	if f.RememberMe {
		tok, exp, err := s.auth.IssueRememberToken(res.Claims)
		if err != nil {
			s.log.Warn("remember-me token", zap.Error(err))
		} else {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     RememberCookieName,
				Value:    tok,
				Path:     "/",
				Expires:  exp,
				HttpOnly: true,
				Secure:   s.opts.Cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	s.log.Info("login", zap.Int64("user_id", res.Claims.UserID), zap.Int64("audit_log_id", res.AuditLogID))
	c.Redirect(http.StatusSeeOther, PathHome)
}

func (s *Server) registerView(c *gin.Context) {
	s.view(c, http.StatusOK, gin.H{})
}

func (s *Server) register(c *gin.Context) {
	var f registerForm
	if !s.bind(c, &f) {
		return
	}
	_, err := s.auth.Register(c.Request.Context(), service.RegisterInput{
		FullName:        f.FullName,
		Username:        f.Username,
		Email:           f.Email,
		PhoneNo:         f.PhoneNo,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, "Registration successful! Please login.", PathLogin)
}

func (s *Server) forgotView(c *gin.Context) {
	s.view(c, http.StatusOK, gin.H{})
}

func (s *Server) forgot(c *gin.Context) {
	email := c.PostForm("Email")
	if err := s.reset.ForgotPassword(c.Request.Context(), email); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, "If your email is registered, you will receive a password reset link.", PathForgot)
}

func (s *Server) resetView(c *gin.Context) {
	token, email := c.Query("token"), c.Query("email")
	if token == "" || email == "" {
		s.fail(c, errs.ErrInvalidResetToken)
		return
	}
	s.view(c, http.StatusOK, gin.H{"token": token, "email": email})
}

func (s *Server) resetPassword(c *gin.Context) {
	var f resetForm
	if !s.bind(c, &f) {
		return
	}
	if err := s.reset.ResetPassword(c.Request.Context(), f.Email, f.Token, f.NewPassword, f.ConfirmPassword); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, "Password reset successful! Please login with your new password.", PathLogin)
}

func (s *Server) changePasswordView(c *gin.Context) {
	s.view(c, http.StatusOK, gin.H{})
}

func (s *Server) changePassword(c *gin.Context) {
	var f changePasswordForm
	if !s.bind(c, &f) {
		return
	}
	claims := ClaimsFromCtx(c.Request.Context())
	if err := s.auth.ChangePassword(c.Request.Context(), claims, f.CurrentPassword, f.NewPassword, f.ConfirmPassword); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, FlashSuccess, "Password changed successfully!", PathProfile)
}

func (s *Server) profile(c *gin.Context) {
	u, err := s.auth.Profile(c.Request.Context(), ClaimsFromCtx(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.view(c, http.StatusOK, convert.ToUserView(*u))
}

// logout closes the audit entry, drops the session and both cookies. Repeating it is harmless.
func (s *Server) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if sess, ok := SessionFromCtx(ctx); ok {
		if err := s.auth.Logout(ctx, sess.Claims, sess.AuditLogID); err != nil {
			s.log.Warn("close audit entry", zap.Error(err))
		}
		if err := s.sessions.Delete(ctx, sess.ID); err != nil && !errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("delete session", zap.Error(err))
		}
	}
	session.ClearCookie(c.Writer, s.opts.Cookie)
	http.SetCookie(c.Writer, &http.Cookie{Name: RememberCookieName, Path: "/", MaxAge: -1, HttpOnly: true})
	c.Redirect(http.StatusSeeOther, PathLogin)
}

func (s *Server) accessDenied(c *gin.Context) {
	s.fail(c, errs.ErrForbidden)
}
