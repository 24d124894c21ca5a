// Package convert maps domain rows to HTTP views and CSV records.
package convert

import (
	"math"
	"strconv"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// Status labels shown for audit entries.
const (
	StatusActive    = "Active"
	StatusLoggedOut = "Logged Out"
)

// UserView is the JSON shape of an account. Credentials never leave the server.
type UserView struct {
	ID        int64     `json:"user_id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	PhoneNo   string    `json:"phone_no,omitempty"`
	RoleID    int64     `json:"role_id"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserView converts an account row.
func ToUserView(u model.UserWithRole) UserView {
	return UserView{
		ID:        u.ID,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		PhoneNo:   u.PhoneNo,
		RoleID:    u.RoleID,
		RoleName:  u.RoleName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// ToUserViews converts a slice of account rows.
func ToUserViews(us []model.UserWithRole) []UserView {
	out := make([]UserView, 0, len(us))
	for _, u := range us {
		out = append(out, ToUserView(u))
	}
	return out
}

// RoleView is the JSON shape of a user group.
type RoleView struct {
	ID          int64    `json:"role_id"`
	Name        string   `json:"role_name"`
	Protected   bool     `json:"protected"`
	MemberCount int      `json:"member_count"`
	Members     []string `json:"members"`
}

// ToRoleView converts a role with its members.
func ToRoleView(r model.RoleWithMembers) RoleView {
	members := r.Members
	if members == nil {
		members = []string{}
	}
	return RoleView{
		ID:          r.ID,
		Name:        r.Name,
		Protected:   r.Protected(),
		MemberCount: len(members),
		Members:     members,
	}
}

// ToRoleViews converts a slice of roles.
func ToRoleViews(rs []model.RoleWithMembers) []RoleView {
	out := make([]RoleView, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToRoleView(r))
	}
	return out
}

// AuditView is one audit entry as listed to admins.
type AuditView struct {
	LogID           int64      `json:"log_id"`
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username,omitempty"`
	FullName        string     `json:"full_name,omitempty"`
	IPAddress       string     `json:"ip_address"`
	UserAgent       string     `json:"user_agent"`
	LoginTime       time.Time  `json:"login_time"`
	LogoutTime      *time.Time `json:"logout_time"`
	DurationMinutes *int       `json:"session_duration_minutes"`
	Status          string     `json:"status"`
}

// Status returns the label for an entry.
func Status(e model.AuditEntry) string {
	if e.Open() {
		return StatusActive
	}
	return StatusLoggedOut
}

// ToAuditView converts an entry joined with its account.
func ToAuditView(r model.AuditRow) AuditView {
	v := ToAuditEntryView(r.AuditEntry)
	v.Username = r.Username
	v.FullName = r.FullName
	return v
}

// ToAuditEntryView converts a bare entry.
func ToAuditEntryView(e model.AuditEntry) AuditView {
	return AuditView{
		LogID:           e.ID,
		UserID:          e.UserID,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		LoginTime:       e.LoginTime,
		LogoutTime:      e.LogoutTime,
		DurationMinutes: e.DurationMinutes,
		Status:          Status(e),
	}
}

// ToAuditViews converts a slice of joined entries.
func ToAuditViews(rs []model.AuditRow) []AuditView {
	out := make([]AuditView, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToAuditView(r))
	}
	return out
}

// FeedbackView is the JSON shape of a feedback message.
type FeedbackView struct {
	ID            int64     `json:"feedback_id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username,omitempty"`
	FullName      string    `json:"full_name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Subject       string    `json:"subject"`
	Message       string    `json:"message"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	IsRead        bool      `json:"is_read"`
	AdminNotes    string    `json:"admin_notes,omitempty"`
}

// ToFeedbackView converts a bare feedback message.
func ToFeedbackView(f model.Feedback) FeedbackView {
	v := FeedbackView{
		ID:        f.ID,
		UserID:    f.UserID,
		Subject:   f.Subject,
		Message:   f.Message,
		CreatedAt: f.CreatedAt,
		IsRead:    f.IsRead,
	}
	if f.ImagePath != "" {
		v.AttachmentURL = "/Feedback/Attachment/" + strconv.FormatInt(f.ID, 10)
	}
	if f.AdminNotes != nil {
		v.AdminNotes = *f.AdminNotes
	}
	return v
}

// ToFeedbackRowView converts a message joined with its submitter.
func ToFeedbackRowView(r model.FeedbackRow) FeedbackView {
	v := ToFeedbackView(r.Feedback)
	v.Username = r.Username
	v.FullName = r.FullName
	v.Email = r.Email
	return v
}

// ToFeedbackViews converts a submitter's own messages.
func ToFeedbackViews(fs []model.Feedback) []FeedbackView {
	out := make([]FeedbackView, 0, len(fs))
	for _, f := range fs {
		out = append(out, ToFeedbackView(f))
	}
	return out
}

// ToFeedbackRowViews converts the admin inbox.
func ToFeedbackRowViews(rs []model.FeedbackRow) []FeedbackView {
	out := make([]FeedbackView, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToFeedbackRowView(r))
	}
	return out
}

// ClaimsView is the signed-in identity shown on every page.
type ClaimsView struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	RoleName string `json:"role_name"`
	Email    string `json:"email"`
}

// ToClaimsView converts session claims.
func ToClaimsView(c model.Claims) ClaimsView {
	return ClaimsView{UserID: c.UserID, Username: c.Username, FullName: c.FullName, RoleName: c.RoleName, Email: c.Email}
}

// StatsView is the JSON shape of audit statistics.
type StatsView struct {
	TotalLogins        int     `json:"total_logins"`
	ActiveSessions     int     `json:"active_sessions"`
	AvgSessionMinutes  float64 `json:"avg_session_minutes"`
	DistinctUsers      int     `json:"distinct_users"`
	TotalClosedMinutes int     `json:"total_closed_minutes"`
}

// ToStatsView converts aggregated statistics. The average is rounded to one decimal.
func ToStatsView(s model.AuditStats) StatsView {
	return StatsView{
		TotalLogins:        s.TotalLogins,
		ActiveSessions:     s.ActiveSessions,
		AvgSessionMinutes:  math.Round(s.AvgSessionMinutes*10) / 10,
		DistinctUsers:      s.DistinctUsers,
		TotalClosedMinutes: s.TotalClosedMinutes,
	}
}

// ActivityView is one account's audit history.
type ActivityView struct {
	User         UserView    `json:"user"`
	Entries      []AuditView `json:"entries"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
	TotalLogins  int         `json:"total_logins"`
	TotalMinutes int         `json:"total_minutes"`
}

// ToActivityView converts a user activity summary.
func ToActivityView(a model.UserActivity) ActivityView {
	v := ActivityView{
		User:         ToUserView(a.User),
		Entries:      make([]AuditView, 0, len(a.Entries)),
		LastLogin:    a.LastLogin,
		TotalLogins:  len(a.Entries),
		TotalMinutes: a.TotalMinutes,
	}
	for _, e := range a.Entries {
		v.Entries = append(v.Entries, ToAuditEntryView(e))
	}
	return v
}
