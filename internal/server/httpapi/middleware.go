package httpapi

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/session"
	"github.com/and161185/useradmin/internal/telemetry"
)

// Logging logs one line per request.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		// metadata only, never form bodies
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if tid := c.Writer.Header().Get(telemetry.TraceIDHeader); tid != "" {
			fields = append(fields, zap.String("trace_id", tid))
		}
		if claims := ClaimsFromCtx(c.Request.Context()); claims.Authenticated() {
			fields = append(fields, zap.Int64("user_id", claims.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			log.Error("http", fields...)
		case status >= 400:
			log.Warn("http", fields...)
		default:
			log.Info("http", fields...)
		}
	}
}

// Recover turns panics into a 500 envelope.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
					Error: &ErrorData{Code: "INTERNAL_ERROR", Message: MsgInternal},
				})
			}
		}()
		c.Next()
	}
}

// loadSession resolves the session cookie, slides its idle expiry and
// stores it in the request context. Unknown or expired IDs clear the cookie.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := session.FromRequest(c.Request, s.opts.Cookie)
		if id == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, errs.ErrNotFound) {
				s.log.Warn("session lookup", zap.Error(err))
			}
			session.ClearCookie(c.Writer, s.opts.Cookie)
			c.Next()
			return
		}
		if err := s.sessions.Touch(ctx, sess, s.opts.IdleTimeout); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				// logged out between Get and Touch
				session.ClearCookie(c.Writer, s.opts.Cookie)
				c.Next()
				return
			}
			s.log.Warn("session touch", zap.Error(err))
		}
		c.Request = c.Request.WithContext(WithSession(ctx, sess))
		c.Next()
	}
}

// requireAuth sends anonymous callers to the login page.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ClaimsFromCtx(c.Request.Context()).Authenticated() {
			c.Redirect(http.StatusSeeOther, PathLogin)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAdmin sends non-admins home with an access-denied flash. It runs after requireAuth.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ClaimsFromCtx(c.Request.Context()).IsAdmin() {
			s.redirect(c, FlashError, MsgAccessDenied, PathHome)
			c.Abort()
			return
		}
		c.Next()
	}
}

// anonOnly sends signed-in callers home.
func (s *Server) anonOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ClaimsFromCtx(c.Request.Context()).Authenticated() {
			c.Redirect(http.StatusSeeOther, PathHome)
			c.Abort()
			return
		}
		c.Next()
	}
}
