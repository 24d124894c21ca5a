// Package model defines domain entities used by services and repositories.
package model

import "time"

// Built-in role identifiers seeded by migrations.
const (
	RoleAdmin int64 = 1
	RoleUser  int64 = 2
)

// Role is a named permission tier (user group).
type Role struct {
	ID   int64
	Name string // unique
}

// Protected reports whether the role is one of the seeded built-ins.
func (r Role) Protected() bool { return IsProtectedRole(r.ID) }

// IsProtectedRole reports whether id belongs to a built-in role that cannot be renamed or deleted.
func IsProtectedRole(id int64) bool { return id == RoleAdmin || id == RoleUser }

// RoleWithMembers is a role joined with its assigned accounts.
type RoleWithMembers struct {
	Role
	Members []string // usernames, ordered
}

// User is an account row. Credentials are stored as base64 HMAC-SHA512 hash + salt.
type User struct {
	ID               int64
	FullName         string
	Username         string // unique
	Email            string // unique
	PhoneNo          string // optional
	RoleID           int64  // FK -> roles.role_id
	PasswordHash     string
	PasswordSalt     string
	ResetToken       *string    // non-nil implies ResetTokenExpiry != nil
	ResetTokenExpiry *time.Time // absolute
	CreatedAt        time.Time
	IsActive         bool
}

// UserWithRole is a user joined with its role name.
type UserWithRole struct {
	User
	RoleName string
}

// Claims is the identity snapshot captured at login and held for the session lifetime.
// It is never refreshed from the account row; role changes apply on the next login.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
	Email    string `json:"email"`
}

// IsAdmin is the authorization gate predicate.
func (c Claims) IsAdmin() bool { return c.RoleID == RoleAdmin }

// Authenticated reports whether the claims belong to a logged-in account.
func (c Claims) Authenticated() bool { return c.UserID > 0 }

// ClaimsFor snapshots a user row into session claims.
func ClaimsFor(u UserWithRole) Claims {
	return Claims{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
		Email:    u.Email,
	}
}

// AuditEntry is one login/logout pair.
type AuditEntry struct {
	ID              int64
	UserID          int64
	IPAddress       string
	UserAgent       string
	LoginTime       time.Time
	LogoutTime      *time.Time // nil while the session is open
	DurationMinutes *int       // set iff LogoutTime is set
}

// Open reports whether no logout was recorded yet.
func (e AuditEntry) Open() bool { return e.LogoutTime == nil }

// AuditRow is an audit entry joined with the account it belongs to.
type AuditRow struct {
	AuditEntry
	Username string
	FullName string
}

// AuditFilter narrows audit queries. Zero values mean "no bound".
type AuditFilter struct {
	UserID int64
	From   time.Time // inclusive
	To     time.Time // exclusive
}

// AuditStats aggregates a filtered audit range.
type AuditStats struct {
	TotalLogins        int
	ActiveSessions     int
	AvgSessionMinutes  float64 // over closed sessions only
	DistinctUsers      int
	TotalClosedMinutes int
}

// UserActivity summarizes one account's audit history.
type UserActivity struct {
	User         UserWithRole
	Entries      []AuditEntry // newest first
	LastLogin    *time.Time
	TotalMinutes int
}

// Feedback is a message submitted by an account, optionally with an attachment.
type Feedback struct {
	ID         int64
	UserID     int64
	Subject    string
	Message    string
	ImagePath  string // relative blob path, empty when no attachment
	CreatedAt  time.Time
	IsRead     bool
	AdminNotes *string
}

// FeedbackRow is a feedback item joined with its submitter.
type FeedbackRow struct {
	Feedback
	Username string
	FullName string
	Email    string
}
