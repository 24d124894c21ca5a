package postgres

import (
	"context"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// AuditRepo implements AuditRepository using PostgreSQL.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// auditWhere binds $1 user id (0 = any), $2 lower bound, $3 upper bound (NULL = open).
const auditWhere = `
WHERE ($1::bigint = 0 OR l.user_id = $1)
  AND ($2::timestamptz IS NULL OR l.login_time >= $2)
  AND ($3::timestamptz IS NULL OR l.login_time < $3)`

func filterArgs(f model.AuditFilter) []any {
	return []any{f.UserID, nullTime(f.From), nullTime(f.To)}
}

// Insert appends a login entry.
func (r *AuditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	const q = `
INSERT INTO audit_log (user_id, ip_address, user_agent, login_time)
VALUES ($1, $2, $3, $4)
RETURNING log_id`
	return r.db.Pool.QueryRow(ctx, q, e.UserID, e.IPAddress, e.UserAgent, e.LoginTime).Scan(&e.ID)
}

// Get loads one entry by ID.
func (r *AuditRepo) Get(ctx context.Context, id int64) (*model.AuditEntry, error) {
	const q = `
SELECT log_id, user_id, ip_address, user_agent, login_time, logout_time, session_duration_minutes
FROM audit_log WHERE log_id = $1`
	var e model.AuditEntry
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&e.ID, &e.UserID, &e.IPAddress, &e.UserAgent, &e.LoginTime, &e.LogoutTime, &e.DurationMinutes,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// Close sets logout time and duration once; later calls match no row.
func (r *AuditRepo) Close(ctx context.Context, id, userID int64, logout time.Time, minutes int) (bool, error) {
	const q = `
UPDATE audit_log
SET logout_time = $3, session_duration_minutes = $4
WHERE log_id = $1 AND user_id = $2 AND logout_time IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID, logout, minutes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List returns filtered entries, newest first.
func (r *AuditRepo) List(ctx context.Context, f model.AuditFilter) ([]model.AuditRow, error) {
	const q = `
SELECT l.log_id, l.user_id, l.ip_address, l.user_agent, l.login_time, l.logout_time,
       l.session_duration_minutes, a.user_name, a.full_name
FROM audit_log l JOIN accounts a ON a.user_id = l.user_id` + auditWhere + `
ORDER BY l.login_time DESC, l.log_id DESC`
	rows, err := r.db.Pool.Query(ctx, q, filterArgs(f)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditRow
	for rows.Next() {
		var row model.AuditRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.IPAddress, &row.UserAgent, &row.LoginTime, &row.LogoutTime,
			&row.DurationMinutes, &row.Username, &row.FullName,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Stats aggregates the filtered range in one pass.
func (r *AuditRepo) Stats(ctx context.Context, f model.AuditFilter) (model.AuditStats, error) {
	const q = `
SELECT count(*),
       count(*) FILTER (WHERE l.logout_time IS NULL),
       COALESCE(avg(l.session_duration_minutes), 0)::float8,
       count(DISTINCT l.user_id),
       COALESCE(sum(l.session_duration_minutes), 0)::int
FROM audit_log l` + auditWhere
	var s model.AuditStats
	err := r.db.Pool.QueryRow(ctx, q, filterArgs(f)...).Scan(
		&s.TotalLogins, &s.ActiveSessions, &s.AvgSessionMinutes, &s.DistinctUsers, &s.TotalClosedMinutes,
	)
	return s, err
}

// DeleteBefore bulk-deletes entries with login_time < cutoff.
func (r *AuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM audit_log WHERE login_time < $1`
	tag, err := r.db.Pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
