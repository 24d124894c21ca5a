package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/useradmin/internal/crypto"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/mail"
	"github.com/and161185/useradmin/internal/repository"
)

// DefaultResetTokenTTL is how long an issued reset token stays valid.
const DefaultResetTokenTTL = time.Hour

// ResetService issues and consumes password reset tokens.
type ResetService struct {
	users  repository.UserRepository
	mailer mail.Mailer
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewResetService constructs ResetService.
func NewResetService(users repository.UserRepository, mailer mail.Mailer, ttl time.Duration, log *zap.Logger) *ResetService {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetService{users: users, mailer: mailer, ttl: ttl, log: log, now: time.Now}
}

// ForgotPassword issues a token for an active account and mails it. Unknown and
// inactive addresses return nil just like a successful send. A failed send keeps
// the stored token and returns ErrEmailDelivery.
func (s *ResetService) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "reset.ForgotPassword")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return errs.FieldError("Email", "Email is required")
	}
	if !validEmail(email) {
		return errs.FieldError("Email", "Invalid Email Address")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return nil
	}

	token, err := pkgcrypto.GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, u.ID, token, s.now().Add(s.ttl)); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.FullName, token); err != nil {
		s.log.Error("failed to send password reset email", zap.String("to", u.Email), zap.Error(err))
		span.RecordError(err)
		return errs.ErrEmailDelivery
	}
	s.log.Info("password reset email sent", zap.String("to", u.Email))
	return nil
}

// ResetPassword consumes a token and sets a new password. Any mismatch, expiry
// or inactive account yields ErrInvalidResetToken.
func (s *ResetService) ResetPassword(ctx context.Context, email, token, newPassword, confirm string) error {
	ctx, span := tracer.Start(ctx, "reset.ResetPassword")
	defer span.End()

	email = strings.TrimSpace(email)
	v := errs.NewValidation()
	if email == "" || token == "" {
		v.Add("Token", "Invalid or expired reset token.")
	}
	validatePassword(v, "NewPassword", newPassword, confirm)
	if err := v.OrNil(); err != nil {
		return err
	}

	hash, salt, err := pkgcrypto.SetPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.users.ConsumeResetToken(ctx, email, token, s.now(), hash, salt)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidResetToken
	}
	return nil
}
