// Package service contains the account, audit, role and feedback use cases.
//
// Every admin operation takes the caller's session claims explicitly and
// re-checks the admin predicate on each call.
package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/model"
	"github.com/and161185/useradmin/internal/repository"
)

var (
	validate = validator.New()
	tracer   = otel.Tracer("github.com/and161185/useradmin/internal/service")
)

// SystemActor is the identity used by operator tooling outside a browser session.
var SystemActor = model.Claims{Username: "useradminctl", RoleID: model.RoleAdmin, RoleName: "Admin"}

// Password length bounds for every password set path.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 100
	MaxPhoneLen    = 11
)

func requireAdmin(actor model.Claims) error {
	if !actor.IsAdmin() {
		return errs.ErrForbidden
	}
	return nil
}

// AccountInput is the editable part of an account.
type AccountInput struct {
	FullName        string
	Username        string
	Email           string
	PhoneNo         string
	RoleID          int64
	IsActive        bool
	Password        string
	ConfirmPassword string
}

func (in *AccountInput) trim() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNo = strings.TrimSpace(in.PhoneNo)
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func validateProfile(v *errs.ValidationError, in AccountInput) {
	if in.FullName == "" {
		v.Add("FullName", "Enter Full Name")
	}
	if in.Username == "" {
		v.Add("Username", "Enter Username")
	}
	switch {
	case in.Email == "":
		v.Add("Email", "Enter email address")
	case !validEmail(in.Email):
		v.Add("Email", "Enter valid email address")
	}
	if len(in.PhoneNo) > MaxPhoneLen {
		v.Add("PhoneNo", "Enter 11 digit phone no. e.g. 01686xxxxxx")
	}
}

// validatePassword checks a new password and its confirmation.
func validatePassword(v *errs.ValidationError, field, password, confirm string) {
	switch n := len(password); {
	case n == 0:
		v.Add(field, "Password is required")
	case n < MinPasswordLen || n > MaxPasswordLen:
		v.Add(field, "Must be between 6 and 100 characters")
	}
	switch {
	case confirm == "":
		v.Add("ConfirmPassword", "Confirm Password is required")
	case confirm != password:
		v.Add("ConfirmPassword", "The password and confirmation password do not match.")
	}
}

// checkUnique reports the first taken identifier, excluding account exceptID.
func checkUnique(ctx context.Context, users repository.UserRepository, username, email string, exceptID int64) error {
	taken, err := users.UsernameTaken(ctx, username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return errs.ErrUsernameTaken
	}
	taken, err = users.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return errs.ErrEmailTaken
	}
	return nil
}
