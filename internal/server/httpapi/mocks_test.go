package httpapi

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/service"
)

// Mocks embed the interface; calling a method a test did not stub panics.

type mockAccounts struct {
	Accounts
	loginFn     func(service.LoginInput) (service.LoginResult, error)
	registerErr   error
	registerCalls int
	remembered    string

	logoutCalls []int64
}

func (m *mockAccounts) Login(_ context.Context, in service.LoginInput) (service.LoginResult, error) {
	return m.loginFn(in)
}

func (m *mockAccounts) Register(context.Context, service.RegisterInput) (int64, error) {
	m.registerCalls++
	return 1, m.registerErr
}

func (m *mockAccounts) Logout(_ context.Context, _ model.Claims, auditLogID int64) error {
	m.logoutCalls = append(m.logoutCalls, auditLogID)
	return nil
}

func (m *mockAccounts) IssueRememberToken(c model.Claims) (string, time.Time, error) {
	return "remember-" + c.Username, time.Now().Add(time.Hour), nil
}

func (m *mockAccounts) RememberedUsername(token string) (string, bool) {
	if token == "remember-"+m.remembered && m.remembered != "" {
		return m.remembered, true
	}
	return "", false
}

func (m *mockAccounts) Profile(_ context.Context, c model.Claims) (*model.UserWithRole, error) {
	return &model.UserWithRole{User: model.User{ID: c.UserID, Username: c.Username, PasswordHash: "secret"}, RoleName: c.RoleName}, nil
}

type mockResets struct {
	PasswordResets
	forgotErr error
	resetErr  error
	emails    []string
}

func (m *mockResets) ForgotPassword(_ context.Context, email string) error {
	m.emails = append(m.emails, email)
	return m.forgotErr
}

func (m *mockResets) ResetPassword(context.Context, string, string, string, string) error {
	return m.resetErr
}

type mockUsers struct {
	UserAdmin
	listed        []model.UserWithRole
	listCalls     int
	deactivateErr error
}

func (m *mockUsers) List(context.Context, model.Claims) ([]model.UserWithRole, error) {
	m.listCalls++
	return m.listed, nil
}

func (m *mockUsers) Get(_ context.Context, _ model.Claims, id int64) (*model.UserWithRole, error) {
	return &model.UserWithRole{User: model.User{ID: id, FullName: "Alice Smith"}}, nil
}

func (m *mockUsers) Deactivate(context.Context, model.Claims, int64) error { return m.deactivateErr }

type mockRoles struct {
	RoleAdmin
	deleteErr error
}

func (m *mockRoles) Get(_ context.Context, _ model.Claims, id int64) (*model.Role, error) {
	return &model.Role{ID: id, Name: "Support"}, nil
}

func (m *mockRoles) Delete(context.Context, model.Claims, int64) error { return m.deleteErr }

type mockAudit struct {
	AuditLog
	exported   model.AuditFilter
	purgedDays int
	purged     int64
}

func (m *mockAudit) Export(_ context.Context, _ model.Claims, f model.AuditFilter, w io.Writer) (int, error) {
	m.exported = f
	_, err := io.WriteString(w, "\"Log ID\"\n\"1\"\n")
	return 1, err
}

func (m *mockAudit) ExportFileName() string { return "user_logs_20250310_140509.csv" }

func (m *mockAudit) PurgeOlderThan(_ context.Context, _ model.Claims, days int) (int64, error) {
	m.purgedDays = days
	return m.purged, nil
}

type mockFeedback struct {
	FeedbackInbox
	markErr     error
	attachment  string
	attachErr   error
	submitted   *service.Attachment
	submittedOK bool
	body        string
}

func (m *mockFeedback) MarkRead(_ context.Context, actor model.Claims, _ int64) error {
	if !actor.IsAdmin() {
		return errs.ErrForbidden
	}
	return m.markErr
}

func (m *mockFeedback) Attachment(context.Context, model.Claims, int64) (io.ReadCloser, string, error) {
	if m.attachErr != nil {
		return nil, "", m.attachErr
	}
	return io.NopCloser(strings.NewReader(m.body)), m.attachment, nil
}

func (m *mockFeedback) Submit(_ context.Context, _ model.Claims, _, _ string, att *service.Attachment) (int64, error) {
	m.submittedOK = true
	if att != nil {
		b, _ := io.ReadAll(att.Body)
		m.body = string(b)
		m.submitted = att
	}
	return 1, nil
}
