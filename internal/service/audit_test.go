package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
)

func newAuditSvc(t *testing.T, audit *fakeAudit, users *fakeUsers, now time.Time) *AuditService {
	s := NewAuditService(audit, users, zaptest.NewLogger(t), 7)
	s.now = func() time.Time { return now }
	return s
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	cases := []struct{ xff, remote, want string }{
		{"203.0.113.5, 10.0.0.1", "10.0.0.1:5555", "203.0.113.5"},
		{"", "192.168.1.9:443", "192.168.1.9"},
		{"", "[::1]:8080", "::1"},
		{" , ", "10.0.0.2", "10.0.0.2"},
		{"", "", UnknownIP},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClientIP(tc.xff, tc.remote), "xff=%q remote=%q", tc.xff, tc.remote)
	}
}

func TestAudit_RecordLogout_Duration(t *testing.T) {
	t.Parallel()
	audit := newFakeAudit()
	login := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newAuditSvc(t, audit, newFakeUsers(), login)
	ctx := context.Background()

	id, err := s.RecordLogin(ctx, 2, "", "ua")
	require.NoError(t, err)
	e, _ := audit.Get(ctx, id)
	require.Equal(t, UnknownIP, e.IPAddress)

	s.now = func() time.Time { return login.Add(2*time.Minute + 59*time.Second) }
	require.NoError(t, s.RecordLogout(ctx, id, 3))
	require.Zero(t, audit.closes, "foreign user must not close the entry")

	require.NoError(t, s.RecordLogout(ctx, id, 2))
	e, _ = audit.Get(ctx, id)
	require.Equal(t, 2, *e.DurationMinutes)
	require.Equal(t, login.Add(2*time.Minute+59*time.Second), *e.LogoutTime)

	require.NoError(t, s.RecordLogout(ctx, id, 2))
	require.NoError(t, s.RecordLogout(ctx, 999, 2))
	require.NoError(t, s.RecordLogout(ctx, 0, 2))
	require.Equal(t, 1, audit.closes)
}

func TestAudit_RecordLogout_ClockSkewClamped(t *testing.T) {
	t.Parallel()
	audit := newFakeAudit()
	login := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newAuditSvc(t, audit, newFakeUsers(), login)
	ctx := context.Background()

	id, err := s.RecordLogin(ctx, 2, "10.0.0.1", "ua")
	require.NoError(t, err)
	s.now = func() time.Time { return login.Add(-time.Minute) }
	require.NoError(t, s.RecordLogout(ctx, id, 2))
	e, _ := audit.Get(ctx, id)
	require.Equal(t, 0, *e.DurationMinutes)
}

func TestAudit_AdminGate(t *testing.T) {
	t.Parallel()
	s := newAuditSvc(t, newFakeAudit(), newFakeUsers(), time.Now())
	ctx := context.Background()

	_, _, err := s.List(ctx, userClaims, model.AuditFilter{})
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.Stats(ctx, userClaims, model.AuditFilter{})
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.UserActivity(ctx, userClaims, 1)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.Export(ctx, userClaims, model.AuditFilter{}, &bytes.Buffer{})
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = s.PurgeOlderThan(ctx, userClaims, 30)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAudit_List_DefaultRange(t *testing.T) {
	t.Parallel()
	audit := newFakeAudit()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newAuditSvc(t, audit, newFakeUsers(), now)

	_, applied, err := s.List(context.Background(), adminClaims, model.AuditFilter{UserID: 4})
	require.NoError(t, err)
	require.Equal(t, model.AuditFilter{UserID: 4, From: now.AddDate(0, 0, -7), To: now}, applied)
	require.Equal(t, applied, audit.lastF)

	from := now.AddDate(0, -1, 0)
	_, err = s.Stats(context.Background(), adminClaims, model.AuditFilter{From: from})
	require.NoError(t, err)
	require.Equal(t, from, audit.lastF.From)
	require.Equal(t, now, audit.lastF.To)
}

func TestAudit_UserActivity(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	audit := newFakeAudit()
	u := seedUser(t, users, "alice", "secret1", model.RoleUser, true)
	s := newAuditSvc(t, audit, users, time.Now())
	t1 := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	t0 := t1.Add(-24 * time.Hour)
	out0 := t0.Add(30 * time.Minute)
	m0 := 30
	audit.listed = []model.AuditRow{
		{AuditEntry: model.AuditEntry{ID: 2, UserID: u.ID, LoginTime: t1}},
		{AuditEntry: model.AuditEntry{ID: 1, UserID: u.ID, LoginTime: t0, LogoutTime: &out0, DurationMinutes: &m0}},
	}

	act, err := s.UserActivity(context.Background(), adminClaims, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", act.User.Username)
	require.Len(t, act.Entries, 2)
	require.Equal(t, 30, act.TotalMinutes)
	require.Equal(t, t1, *act.LastLogin)
	require.Equal(t, model.AuditFilter{UserID: u.ID}, audit.lastF)

	_, err = s.UserActivity(context.Background(), adminClaims, 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAudit_Export(t *testing.T) {
	t.Parallel()
	audit := newFakeAudit()
	now := time.Date(2025, 3, 10, 14, 5, 9, 0, time.UTC)
	s := newAuditSvc(t, audit, newFakeUsers(), now)
	audit.listed = []model.AuditRow{
		{AuditEntry: model.AuditEntry{ID: 1, UserID: 2, IPAddress: "10.0.0.1", UserAgent: `Mozilla "X"`, LoginTime: now}, Username: "alice", FullName: "Alice"},
	}

	var buf bytes.Buffer
	n, err := s.Export(context.Background(), adminClaims, model.AuditFilter{}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, audit.lastF.From.IsZero(), "export leaves bounds open")

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], `"Mozilla ""X"""`)
	require.Contains(t, lines[1], `"Active"`)
	require.Equal(t, "user_logs_20250310_140509.csv", s.ExportFileName())
}

func TestAudit_Purge(t *testing.T) {
	t.Parallel()
	audit := newFakeAudit()
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	s := newAuditSvc(t, audit, newFakeUsers(), now)
	ctx := context.Background()

	var ve *errs.ValidationError
	_, err := s.PurgeOlderThan(ctx, adminClaims, 0)
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "daysToKeep")

	audit.deleted = 12
	n, err := s.PurgeOlderThan(ctx, adminClaims, 30)
	require.NoError(t, err)
	require.Equal(t, int64(12), n)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), audit.cutoff)

	require.Equal(t, "Cleared 12 log entries older than 30 days.", PurgeMessage(12, 30))
	require.Equal(t, "No log entries older than 30 days were found.", PurgeMessage(0, 30))
}
