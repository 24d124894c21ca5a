package httpapi

import (
	"context"

	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/session"
)

type ctxKey string

const sessionKey ctxKey = "ua.session"

// WithSession stores the caller's session in context.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromCtx fetches the session, if any.
func SessionFromCtx(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// ClaimsFromCtx returns the session claims or zero claims for anonymous callers.
func ClaimsFromCtx(ctx context.Context) model.Claims {
	if s, ok := SessionFromCtx(ctx); ok {
		return s.Claims
	}
	return model.Claims{}
}
