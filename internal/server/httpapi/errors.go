package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/and161185/useradmin/internal/errs"
	"github.com/and161185/useradmin/internal/service"
)

// User-facing messages.
const (
	MsgAccessDenied     = "Access denied. Admin privileges required."
	MsgBadCredentials   = "Invalid username or password."
	MsgRateLimited      = "Too many failed login attempts. Please try again later."
	MsgInvalidReset     = "Invalid or expired reset token."
	MsgEmailDelivery    = "Failed to send reset email. Please try again later."
	MsgLastAdmin        = "Cannot delete the last active admin user."
	MsgSelfDeactivate   = "You cannot delete your own account."
	MsgProtectedEdit    = "Cannot edit default user groups."
	MsgProtectedDelete  = "Cannot delete default user groups."
	MsgNotFound         = "The requested item was not found."
	MsgValidation       = "Please correct the errors and try again."
	MsgInternal         = "An unexpected error occurred."
	MsgUploadTooLarge   = "The attached file is too large."
	MsgBadForm          = "The submitted form could not be read."
	msgUsernameTaken    = "Username already exists."
	msgEmailTaken       = "Email already registered."
	msgRoleNameTaken    = "User Group Name already exists."
	msgRoleInUseFormat  = "Cannot delete user group '%s' because it has users assigned. Reassign users first."
	msgRoleInUseUnnamed = "Cannot delete a user group that has users assigned. Reassign users first."
)

// errBadForm marks a request body that failed to decode.
var errBadForm = errors.New("malformed form")

type apiError struct {
	status  int
	code    string
	message string
	fields  map[string]string
}

// flashText picks the most specific message for a one-line flash.
func (e apiError) flashText() string {
	if len(e.fields) == 0 {
		return e.message
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.fields[keys[0]]
}

func field(status int, code, name, msg string) apiError {
	return apiError{status: status, code: code, message: msg, fields: map[string]string{name: msg}}
}

func toAPIError(err error) apiError {
	var ve *errs.ValidationError
	var inUse *service.RoleInUseError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return apiError{status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR", message: MsgValidation, fields: ve.Fields}
	case errors.As(err, &tooLarge):
		return field(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "ImageFile", MsgUploadTooLarge)
	case errors.Is(err, errBadForm):
		return apiError{status: http.StatusBadRequest, code: "BAD_REQUEST", message: MsgBadForm}
	case errors.Is(err, errs.ErrUsernameTaken):
		return field(http.StatusConflict, "USERNAME_TAKEN", "Username", msgUsernameTaken)
	case errors.Is(err, errs.ErrEmailTaken):
		return field(http.StatusConflict, "EMAIL_TAKEN", "Email", msgEmailTaken)
	case errors.Is(err, errs.ErrRoleNameTaken):
		return field(http.StatusConflict, "ROLE_NAME_TAKEN", "RoleName", msgRoleNameTaken)
	case errors.As(err, &inUse):
		return apiError{status: http.StatusConflict, code: "ROLE_IN_USE", message: fmt.Sprintf(msgRoleInUseFormat, inUse.Name)}
	case errors.Is(err, errs.ErrRoleInUse):
		return apiError{status: http.StatusConflict, code: "ROLE_IN_USE", message: msgRoleInUseUnnamed}
	case errors.Is(err, errs.ErrProtectedRole):
		return apiError{status: http.StatusConflict, code: "PROTECTED_ROLE", message: MsgProtectedEdit}
	case errors.Is(err, errs.ErrLastAdmin):
		return apiError{status: http.StatusConflict, code: "LAST_ADMIN", message: MsgLastAdmin}
	case errors.Is(err, errs.ErrSelfDeactivate):
		return apiError{status: http.StatusConflict, code: "SELF_DEACTIVATE", message: MsgSelfDeactivate}
	case errors.Is(err, errs.ErrNotFound):
		return apiError{status: http.StatusNotFound, code: "NOT_FOUND", message: MsgNotFound}
	case errors.Is(err, errs.ErrUnauthorized):
		return apiError{status: http.StatusUnauthorized, code: "UNAUTHORIZED", message: MsgBadCredentials}
	case errors.Is(err, errs.ErrForbidden):
		return apiError{status: http.StatusForbidden, code: "FORBIDDEN", message: MsgAccessDenied}
	case errors.Is(err, errs.ErrRateLimited):
		return apiError{status: http.StatusTooManyRequests, code: "RATE_LIMITED", message: MsgRateLimited}
	case errors.Is(err, errs.ErrInvalidResetToken):
		return apiError{status: http.StatusBadRequest, code: "INVALID_RESET_TOKEN", message: MsgInvalidReset}
	case errors.Is(err, errs.ErrEmailDelivery):
		return apiError{status: http.StatusServiceUnavailable, code: "EMAIL_DELIVERY", message: MsgEmailDelivery}
	case errors.Is(err, errs.ErrVersionConflict):
		return apiError{status: http.StatusConflict, code: "CONFLICT", message: "The record was changed by someone else. Reload and try again."}
	default:
		return apiError{status: http.StatusInternalServerError, code: "INTERNAL_ERROR", message: MsgInternal}
	}
}
