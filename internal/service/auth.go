package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/useradmin/internal/crypto"
	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/limiter"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

// AuthService handles self-service account operations.
type AuthService struct {
	users       repository.UserRepository
	audit       AuditRecorder
	lim         limiter.Limiter
	signKey     []byte
	rememberTTL time.Duration
	log         *zap.Logger
	now         func() time.Time
}

// NewAuthService constructs AuthService. signKey signs remember-me tokens.
func NewAuthService(users repository.UserRepository, audit AuditRecorder, lim limiter.Limiter, signKey []byte, rememberTTL time.Duration, log *zap.Logger) *AuthService {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthService{
		users:       users,
		audit:       audit,
		lim:         lim,
		signKey:     signKey,
		rememberTTL: rememberTTL,
		log:         log,
		now:         time.Now,
	}
}

// RegisterInput is the self-registration form.
type RegisterInput struct {
	FullName        string
	Username        string
	Email           string
	PhoneNo         string
	Password        string
	ConfirmPassword string
}

// Register creates an active account with the User role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	acc := AccountInput{
		FullName: in.FullName, Username: in.Username, Email: in.Email, PhoneNo: in.PhoneNo,
		Password: in.Password, ConfirmPassword: in.ConfirmPassword,
	}
	acc.trim()
	v := errs.NewValidation()
	validateProfile(v, acc)
	validatePassword(v, "Password", acc.Password, acc.ConfirmPassword)
	if err := v.OrNil(); err != nil {
		return 0, err
	}
	if err := checkUnique(ctx, s.users, acc.Username, acc.Email, 0); err != nil {
		return 0, err
	}

	hash, salt, err := pkgcrypto.SetPassword(acc.Password)
	if err != nil {
		return 0, err
	}
	u := &model.User{
		FullName:     acc.FullName,
		Username:     acc.Username,
		Email:        acc.Email,
		PhoneNo:      acc.PhoneNo,
		RoleID:       model.RoleUser,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return 0, err
	}
	s.log.Info("account registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u.ID, nil
}

// LoginInput carries credentials and request metadata for the audit log.
type LoginInput struct {
	Username string
	Password string
	// ClientIP is recorded in the audit log; it may come from X-Forwarded-For.
	ClientIP string
	// PeerIP keys the throttle and must only honour trusted proxies. Empty falls back to ClientIP.
	PeerIP    string
	UserAgent string
}

// LoginResult is what a new session stores.
type LoginResult struct {
	Claims     model.Claims
	AuditLogID int64
}

// Login authenticates an active account, applying per (username, ip) throttling.
// Unknown user, inactive account and wrong password all yield ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	username := strings.TrimSpace(in.Username)
	v := errs.NewValidation()
	if username == "" {
		v.Add("Username", "Enter Username")
	}
	if in.Password == "" {
		v.Add("Password", "Enter Password")
	}
	if err := v.OrNil(); err != nil {
		return LoginResult{}, err
	}

	peer := in.PeerIP
	if peer == "" {
		peer = in.ClientIP
	}
	ipHash := limiter.HashIP(peer)
	// account names are case-insensitive, so the throttle key is too
	key := strings.ToLower(username)
	allowed, _, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !allowed {
		return LoginResult{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return LoginResult{}, err
	}
	if err != nil || !u.IsActive || !pkgcrypto.VerifyPassword(in.Password, u.PasswordHash, u.PasswordSalt) {
		blocked, _, ferr := s.lim.Failure(ctx, key, ipHash)
		if ferr != nil {
			s.log.Warn("limiter failure", zap.Error(ferr))
		}
		if blocked {
			return LoginResult{}, errs.ErrRateLimited
		}
		return LoginResult{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, key, ipHash); err != nil {
		s.log.Warn("limiter reset", zap.Error(err))
	}

	logID, err := s.audit.RecordLogin(ctx, u.ID, in.ClientIP, in.UserAgent)
	if err != nil {
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))
	return LoginResult{Claims: model.ClaimsFor(*u), AuditLogID: logID}, nil
}

// Logout closes the session's audit entry.
func (s *AuthService) Logout(ctx context.Context, claims model.Claims, auditLogID int64) error {
	if !claims.Authenticated() {
		return nil
	}
	return s.audit.RecordLogout(ctx, auditLogID, claims.UserID)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, claims model.Claims, current, newPassword, confirm string) error {
	if !claims.Authenticated() {
		return errs.ErrUnauthorized
	}
	v := errs.NewValidation()
	if current == "" {
		v.Add("CurrentPassword", "Current password is required")
	}
	validatePassword(v, "NewPassword", newPassword, confirm)
	if err := v.OrNil(); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if !pkgcrypto.VerifyPassword(current, u.PasswordHash, u.PasswordSalt) {
		return errs.FieldError("CurrentPassword", "Current password is incorrect.")
	}
	hash, salt, err := pkgcrypto.SetPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, u.ID, hash, salt)
}

// Profile reads the caller's current account row. Session claims are not refreshed from it.
func (s *AuthService) Profile(ctx context.Context, claims model.Claims) (*model.UserWithRole, error) {
	if !claims.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return s.users.GetByID(ctx, claims.UserID)
}

type rememberClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueRememberToken signs a token that pre-fills the login form. It never authenticates.
func (s *AuthService) IssueRememberToken(claims model.Claims) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.rememberTTL)
	rc := rememberClaims{
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rc).SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign remember token: %w", err)
	}
	return signed, exp, nil
}

// RememberedUsername validates a remember-me token and returns its username.
func (s *AuthService) RememberedUsername(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var rc rememberClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || rc.Username == "" {
		return "", false
	}
	return rc.Username, true
}
