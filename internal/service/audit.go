package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/useradmin/internal/convert"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// UnknownIP is recorded when neither a forwarding header nor a peer address is available.
const UnknownIP = "Unknown"

// AuditRecorder records session start and end.
type AuditRecorder interface {
	RecordLogin(ctx context.Context, userID int64, ip, userAgent string) (int64, error)
	RecordLogout(ctx context.Context, logID, userID int64) error
}

// AuditService writes and reads the login/logout log.
type AuditService struct {
	repo         repository.AuditRepository
	users        repository.UserRepository
	log          *zap.Logger
	now          func() time.Time
	defaultRange time.Duration
}

var _ AuditRecorder = (*AuditService)(nil)

// NewAuditService constructs AuditService. defaultRangeDays bounds List when no dates are given.
func NewAuditService(repo repository.AuditRepository, users repository.UserRepository, log *zap.Logger, defaultRangeDays int) *AuditService {
	if defaultRangeDays <= 0 {
		defaultRangeDays = 7
	}
	return &AuditService{
		repo:         repo,
		users:        users,
		log:          log,
		now:          time.Now,
		defaultRange: time.Duration(defaultRangeDays) * 24 * time.Hour,
	}
}

// ClientIP picks the first X-Forwarded-For value, then the peer address without port.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if remoteAddr == "" {
		return UnknownIP
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// RecordLogin appends an open entry and returns its ID.
func (s *AuditService) RecordLogin(ctx context.Context, userID int64, ip, userAgent string) (int64, error) {
	if ip == "" {
		ip = UnknownIP
	}
	e := &model.AuditEntry{UserID: userID, IPAddress: ip, UserAgent: userAgent, LoginTime: s.now()}
	if err := s.repo.Insert(ctx, e); err != nil {
		return 0, fmt.Errorf("audit insert: %w", err)
	}
	return e.ID, nil
}

// RecordLogout closes the entry once. Unknown, foreign or already closed entries are left untouched.
func (s *AuditService) RecordLogout(ctx context.Context, logID, userID int64) error {
	if logID <= 0 {
		return nil
	}
	e, err := s.repo.Get(ctx, logID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	if e.UserID != userID || !e.Open() {
		return nil
	}
	out := s.now()
	minutes := int(out.Sub(e.LoginTime) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	closed, err := s.repo.Close(ctx, logID, userID, out, minutes)
	if err != nil {
		return err
	}
	if !closed {
		s.log.Debug("audit entry already closed", zap.Int64("log_id", logID))
	}
	return nil
}

// withDefaultRange fills missing bounds: From defaults to now minus the default range, To to now.
func (s *AuditService) withDefaultRange(f model.AuditFilter) model.AuditFilter {
	now := s.now()
	if f.From.IsZero() {
		f.From = now.Add(-s.defaultRange)
	}
	if f.To.IsZero() {
		f.To = now
	}
	return f
}

// List returns entries in the filter, defaulting to the recent range. The applied filter is returned.
func (s *AuditService) List(ctx context.Context, actor model.Claims, f model.AuditFilter) ([]model.AuditRow, model.AuditFilter, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, f, err
	}
	f = s.withDefaultRange(f)
	rows, err := s.repo.List(ctx, f)
	return rows, f, err
}

// Stats aggregates the same range List would show.
func (s *AuditService) Stats(ctx context.Context, actor model.Claims, f model.AuditFilter) (model.AuditStats, error) {
	if err := requireAdmin(actor); err != nil {
		return model.AuditStats{}, err
	}
	return s.repo.Stats(ctx, s.withDefaultRange(f))
}

// UserActivity returns one account's whole history.
func (s *AuditService) UserActivity(ctx context.Context, actor model.Claims, userID int64) (*model.UserActivity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, model.AuditFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	act := &model.UserActivity{User: *u, Entries: make([]model.AuditEntry, 0, len(rows))}
	for _, r := range rows {
		act.Entries = append(act.Entries, r.AuditEntry)
		if r.DurationMinutes != nil {
			act.TotalMinutes += *r.DurationMinutes
		}
	}
	if len(rows) > 0 {
		last := rows[0].LoginTime
		act.LastLogin = &last
	}
	return act, nil
}

// Export writes the filtered entries as CSV and returns the row count. Unlike List,
// missing bounds are left open.
func (s *AuditService) Export(ctx context.Context, actor model.Claims, f model.AuditFilter, w io.Writer) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := convert.WriteAuditCSV(w, rows); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(rows), nil
}

// ExportFileName names an export taken now.
func (s *AuditService) ExportFileName() string {
	return convert.AuditExportFileName(s.now())
}

// PurgeOlderThan deletes entries whose login is older than days and reports how many went.
func (s *AuditService) PurgeOlderThan(ctx context.Context, actor model.Claims, days int) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if days < 1 {
		return 0, errs.FieldError("daysToKeep", "Days to keep must be at least 1.")
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("audit purge", zap.String("actor", actor.Username), zap.Int("days", days), zap.Int64("deleted", n))
	return n, nil
}

// PurgeMessage is the user-facing summary of a purge.
func PurgeMessage(deleted int64, days int) string {
	if deleted == 0 {
		return fmt.Sprintf("No log entries older than %d days were found.", days)
	}
	return fmt.Sprintf("Cleared %d log entries older than %d days.", deleted, days)
}
