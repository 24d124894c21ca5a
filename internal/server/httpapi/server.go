// Package httpapi exposes the admin web application over HTTP with gin.
//
// Views answer with a JSON envelope; form posts answer with a 303 redirect
// that carries a sealed one-shot flash message.
package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/crypto/sealer"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/service"
	"github.com/and161185/useradmin/internal/session"
	"github.com/and161185/useradmin/internal/telemetry"
)

// Accounts is the self-service account surface.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (int64, error)
	Login(ctx context.Context, in service.LoginInput) (service.LoginResult, error)
	Logout(ctx context.Context, claims model.Claims, auditLogID int64) error
	ChangePassword(ctx context.Context, claims model.Claims, current, newPassword, confirm string) error
	Profile(ctx context.Context, claims model.Claims) (*model.UserWithRole, error)
	IssueRememberToken(claims model.Claims) (string, time.Time, error)
	RememberedUsername(token string) (string, bool)
}

// PasswordResets is the forgot-password flow.
type PasswordResets interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword, confirm string) error
}

// UserAdmin is admin account management.
type UserAdmin interface {
	List(ctx context.Context, actor model.Claims) ([]model.UserWithRole, error)
	Get(ctx context.Context, actor model.Claims, id int64) (*model.UserWithRole, error)
	Roles(ctx context.Context, actor model.Claims) ([]model.RoleWithMembers, error)
	Create(ctx context.Context, actor model.Claims, in service.AccountInput) (int64, error)
	Update(ctx context.Context, actor model.Claims, id int64, in service.AccountInput) error
	Deactivate(ctx context.Context, actor model.Claims, id int64) error
	Activate(ctx context.Context, actor model.Claims, id int64) error
	ResetPassword(ctx context.Context, actor model.Claims, id int64, newPassword, confirm string) error
}

// RoleAdmin is user group management.
type RoleAdmin interface {
	List(ctx context.Context, actor model.Claims) ([]model.RoleWithMembers, error)
	Get(ctx context.Context, actor model.Claims, id int64) (*model.Role, error)
	Create(ctx context.Context, actor model.Claims, name string) (int64, error)
	Rename(ctx context.Context, actor model.Claims, id int64, name string) error
	Delete(ctx context.Context, actor model.Claims, id int64) error
}

// AuditLog is the login/logout log viewer.
type AuditLog interface {
	List(ctx context.Context, actor model.Claims, f model.AuditFilter) ([]model.AuditRow, model.AuditFilter, error)
	Stats(ctx context.Context, actor model.Claims, f model.AuditFilter) (model.AuditStats, error)
	UserActivity(ctx context.Context, actor model.Claims, userID int64) (*model.UserActivity, error)
	Export(ctx context.Context, actor model.Claims, f model.AuditFilter, w io.Writer) (int, error)
	ExportFileName() string
	PurgeOlderThan(ctx context.Context, actor model.Claims, days int) (int64, error)
}

// FeedbackInbox is the feedback submission and moderation surface.
type FeedbackInbox interface {
	Submit(ctx context.Context, claims model.Claims, subject, message string, att *service.Attachment) (int64, error)
	Mine(ctx context.Context, claims model.Claims) ([]model.Feedback, error)
	List(ctx context.Context, actor model.Claims) ([]model.FeedbackRow, error)
	View(ctx context.Context, actor model.Claims, id int64) (*model.FeedbackRow, error)
	AddNote(ctx context.Context, actor model.Claims, id int64, note string) error
	MarkRead(ctx context.Context, actor model.Claims, id int64) error
	Delete(ctx context.Context, actor model.Claims, id int64) error
	Attachment(ctx context.Context, claims model.Claims, id int64) (io.ReadCloser, string, error)
}

var (
	_ Accounts       = (*service.AuthService)(nil)
	_ PasswordResets = (*service.ResetService)(nil)
	_ UserAdmin      = (*service.UserService)(nil)
	_ RoleAdmin      = (*service.RoleService)(nil)
	_ AuditLog       = (*service.AuditService)(nil)
	_ FeedbackInbox  = (*service.FeedbackService)(nil)
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Deps are the collaborators handlers call into.
type Deps struct {
	Auth     Accounts
	Reset    PasswordResets
	Users    UserAdmin
	Roles    RoleAdmin
	Audit    AuditLog
	Feedback FeedbackInbox
	Sessions session.Store
	Flash    *sealer.Sealer
	Checks   map[string]Check
	Log      *zap.Logger
}

// Options tune cookies, sessions and uploads.
type Options struct {
	Cookie         session.CookieOptions
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	TrustedProxies []string
	TracerName     string
	// DaysToKeep is the ClearOldLogs retention when the form leaves it empty.
	DaysToKeep int
}

// DefaultIdleTimeout applies when Options.IdleTimeout is zero.
const DefaultIdleTimeout = 30 * time.Minute

// RememberCookieName carries the signed remember-me token.
const RememberCookieName = "useradmin_remember"

// Server wires services into gin handlers.
type Server struct {
	auth     Accounts
	reset    PasswordResets
	users    UserAdmin
	roles    RoleAdmin
	audit    AuditLog
	feedback FeedbackInbox
	sessions session.Store
	flash    *sealer.Sealer
	checks   map[string]Check
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

// New constructs a Server with injected services.
func New(d Deps, opts Options) *Server {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.DaysToKeep <= 0 {
		opts.DaysToKeep = DefaultDaysToKeep
	}
	if opts.TracerName == "" {
		opts.TracerName = "useradmin/http"
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		auth:     d.Auth,
		reset:    d.Reset,
		users:    d.Users,
		roles:    d.Roles,
		audit:    d.Audit,
		feedback: d.Feedback,
		sessions: d.Sessions,
		flash:    d.Flash,
		checks:   d.Checks,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Route paths used for redirects.
const (
	PathHome          = "/"
	PathLogin         = "/Account/Login"
	PathForgot        = "/Account/ForgotPassword"
	PathProfile       = "/Account/Profile"
	PathUsers         = "/UserManagement/Users"
	PathUserGroups    = "/UserManagement/UserGroups"
	PathUserLog       = "/UserLog"
	PathMyFeedback    = "/Feedback/MyFeedback"
	PathFeedbackAdmin = "/Feedback/AdminList"
)

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.opts.TrustedProxies); err != nil {
		s.log.Warn("trusted proxies", zap.Error(err))
	}
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.Use(Recover(s.log), telemetry.Middleware(s.opts.TracerName), Logging(s.log), s.loadSession())

	r.GET("/healthz", s.health)
	r.GET(PathHome, s.home)

	acc := r.Group("/Account")
	acc.GET("/Login", s.anonOnly(), s.loginView)
	acc.POST("/Login", s.login)
	acc.GET("/Register", s.anonOnly(), s.registerView)
	acc.POST("/Register", s.register)
	acc.GET("/ForgotPassword", s.forgotView)
	acc.POST("/ForgotPassword", s.forgot)
	acc.GET("/ForgotChangePassword", s.resetView)
	acc.POST("/ForgotChangePassword", s.resetPassword)
	acc.GET("/Logout", s.logout)
	acc.POST("/Logout", s.logout)
	acc.GET("/AccessDenied", s.accessDenied)

	authed := r.Group("/", s.requireAuth())
	authed.GET("/Account/Profile", s.profile)
	authed.GET("/Account/ChangePassword", s.changePasswordView)
	authed.POST("/Account/ChangePassword", s.changePassword)
	authed.GET("/Feedback/Create", s.feedbackForm)
	authed.POST("/Feedback/Create", s.submitFeedback)
	authed.GET("/Feedback/MyFeedback", s.myFeedback)
	authed.GET("/Feedback/Attachment/:id", s.feedbackAttachment)
	// answers JSON, so the admin check happens in the service
	authed.POST("/Feedback/MarkAsRead/:id", s.markFeedbackRead)

	admin := authed.Group("/", s.requireAdmin())
	admin.GET(PathUsers, s.listUsers)
	admin.GET(PathUsers+"/Create", s.createUserForm)
	admin.POST(PathUsers+"/Create", s.createUser)
	admin.GET(PathUsers+"/Edit/:id", s.editUserForm)
	admin.POST(PathUsers+"/Edit/:id", s.editUser)
	admin.POST(PathUsers+"/Deactivate/:id", s.deactivateUser)
	admin.POST(PathUsers+"/Activate/:id", s.activateUser)
	admin.POST(PathUsers+"/ResetPassword/:id", s.adminResetPassword)

	admin.GET(PathUserGroups, s.listRoles)
	admin.POST(PathUserGroups+"/Create", s.createRole)
	admin.GET(PathUserGroups+"/Edit/:id", s.editRoleForm)
	admin.POST(PathUserGroups+"/Edit/:id", s.renameRole)
	admin.POST(PathUserGroups+"/Delete/:id", s.deleteRole)

	admin.GET(PathUserLog, s.listLogs)
	admin.GET(PathUserLog+"/Statistics", s.logStats)
	admin.GET(PathUserLog+"/UserActivity/:id", s.userActivity)
	admin.GET(PathUserLog+"/Export", s.exportLogs)
	admin.POST(PathUserLog+"/ClearOldLogs", s.clearOldLogs)

	admin.GET(PathFeedbackAdmin, s.adminFeedbackList)
	admin.GET("/Feedback/AdminView/:id", s.adminFeedbackView)
	admin.POST("/Feedback/AddAdminNote", s.addFeedbackNote)
	admin.POST("/Feedback/Delete/:id", s.deleteFeedback)

	return r
}
