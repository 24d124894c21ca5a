package repository

import (
	"context"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// AuditRepository stores login/logout entries.
type AuditRepository interface {
	// Insert appends a login entry and fills its ID.
	Insert(ctx context.Context, e *model.AuditEntry) error
	// Get loads a single entry.
	Get(ctx context.Context, id int64) (*model.AuditEntry, error)
	// Close records logout for an open entry of userID; false when nothing was updated.
	Close(ctx context.Context, id, userID int64, logout time.Time, minutes int) (bool, error)
	// List returns filtered entries joined with account names, newest first.
	List(ctx context.Context, f model.AuditFilter) ([]model.AuditRow, error)
	// Stats aggregates the filtered range.
	Stats(ctx context.Context, f model.AuditFilter) (model.AuditStats, error)
	// DeleteBefore removes entries with login_time strictly before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
