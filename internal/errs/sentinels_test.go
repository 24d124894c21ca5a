package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationError_IsAndMessage(t *testing.T) {
	t.Parallel()

	v := NewValidation()
	require.NoError(t, v.OrNil())

	v.Add("Password", "Password is required")
	v.Add("Password", "second message is ignored")
	v.Add("Email", "Enter valid email address")

	err := fmt.Errorf("register: %w", v.OrNil())
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "register: validation: Email: Enter valid email address; Password: Password is required", err.Error())

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "Password is required", ve.Fields["Password"])
}

func TestFieldError(t *testing.T) {
	t.Parallel()

	err := FieldError("Subject", "Subject is required")
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrNotFound)
}
