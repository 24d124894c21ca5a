// Package mail delivers password reset links.
package mail

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends transactional email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, displayName, token string) error
}

// ResetLink builds the absolute link the reset email points to.
func ResetLink(baseURL, token, email string) string {
	return strings.TrimRight(baseURL, "/") + "/Account/ForgotChangePassword?token=" +
		url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}

// LogMailer writes reset links to the log instead of sending them.
type LogMailer struct {
	BaseURL string
	Log     *zap.Logger
}

// SendPasswordReset logs the link at info level.
func (m LogMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	m.Log.Info("password reset link", zap.String("to", to), zap.String("link", ResetLink(m.BaseURL, token, to)))
	return nil
}
