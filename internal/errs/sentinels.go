// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"sort"
	"strings"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates an update touched no row although the caller expected one.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication (bad credentials, inactive account, no session).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without the admin role.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation not covered by a narrower sentinel.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// Conflicts surfaced to the user with a specific message.
var (
	ErrUsernameTaken  = errors.New("username already exists")
	ErrEmailTaken     = errors.New("email already registered")
	ErrRoleNameTaken  = errors.New("role name already exists")
	ErrRoleInUse      = errors.New("role has members")
	ErrProtectedRole  = errors.New("built-in role")
	ErrLastAdmin      = errors.New("last active admin")
	ErrSelfDeactivate = errors.New("cannot deactivate own account")
)

var (
	// ErrInvalidResetToken covers expired, mismatched and inactive-account resets alike.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	// ErrEmailDelivery indicates the outbound mail transport failed; the caller may retry later.
	ErrEmailDelivery = errors.New("email delivery failed")
)

// ValidationError carries per-field messages for malformed or missing input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns an empty ValidationError ready for Add.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for field unless one is already present.
func (v *ValidationError) Add(field, msg string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool { return len(v.Fields) == 0 }

// OrNil returns v as an error when it has fields, nil otherwise.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (v *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldError builds a single-field ValidationError.
func FieldError(field, msg string) error {
	v := NewValidation()
	v.Add(field, msg)
	return v
}
