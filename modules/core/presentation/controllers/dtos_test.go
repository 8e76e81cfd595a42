package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearchange/moc-tracker/pkg/serrors"
)

func TestLoginRequest_Ok(t *testing.T) {
	t.Parallel()

	valid := &LoginRequest{Email: "lee@example.com", Password: "s3cret"}
	require.NoError(t, valid.Ok())

	missing := &LoginRequest{Email: "lee@example.com"}
	var required *serrors.FieldRequired
	require.ErrorAs(t, missing.Ok(), &required)
	assert.Equal(t, "password", required.Field)

	malformed := &LoginRequest{Email: "not-an-email", Password: "s3cret"}
	var invalid *serrors.FieldInvalid
	require.ErrorAs(t, malformed.Ok(), &invalid)
	assert.Equal(t, "email", invalid.Field)
	assert.Equal(t, "email", invalid.Rule)
}

func TestCreateUserRequest_Ok(t *testing.T) {
	t.Parallel()

	valid := &CreateUserRequest{Email: "nina@example.com", Name: "Nina New"}
	require.NoError(t, valid.Ok())

	missing := &CreateUserRequest{Email: "nina@example.com"}
	var required *serrors.FieldRequired
	require.ErrorAs(t, missing.Ok(), &required)
	assert.Equal(t, "name", required.Field)

	malformed := &CreateUserRequest{Email: "nope", Name: "Nina New"}
	var invalid *serrors.FieldInvalid
	require.ErrorAs(t, malformed.Ok(), &invalid)
	assert.Equal(t, "email", invalid.Field)
}

func TestCreateDepartmentRequest_Ok(t *testing.T) {
	t.Parallel()

	valid := &CreateDepartmentRequest{Name: "Engineering"}
	require.NoError(t, valid.Ok())

	var required *serrors.FieldRequired
	require.ErrorAs(t, (&CreateDepartmentRequest{}).Ok(), &required)
	assert.Equal(t, "name", required.Field)
}
