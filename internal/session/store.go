// Package session keeps server-side login state keyed by an opaque cookie value.
package session

import (
	"context"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// Session is the server-side state of one signed-in browser.
type Session struct {
	ID         string       `json:"id"`
	Claims     model.Claims `json:"claims"`
	AuditLogID int64        `json:"audit_log_id"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// Store persists sessions. Get returns errs.ErrNotFound for unknown or expired IDs.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Touch moves the expiry idle past now. A session deleted since Get is errs.ErrNotFound.
	Touch(ctx context.Context, s *Session, idle time.Duration) error
	Delete(ctx context.Context, id string) error
}
