package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

func TestCheckRoleUnauthenticated(t *testing.T) {
	err := CheckRole(nil, domain.RoleUser)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHENTICATED", domainCode(t, err))
}

func TestCheckRoleAllowed(t *testing.T) {
	principal := &domain.Principal{SubjectID: "5", Role: domain.RoleSeller}
	assert.NoError(t, CheckRole(principal, domain.RoleSeller, domain.RoleAdmin))
}

func TestCheckRoleForbidden(t *testing.T) {
	principal := &domain.Principal{SubjectID: "5", Role: domain.RoleUser}
	err := CheckRole(principal, domain.RoleSeller, domain.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestCheckRoleEmptyAllowSetOnlyNeedsAuthentication(t *testing.T) {
	assert.NoError(t, CheckRole(&domain.Principal{SubjectID: "5", Role: domain.RoleUser}))
}

func TestCheckSelfOrAdmin(t *testing.T) {
	user := &domain.Principal{SubjectID: "5", Role: domain.RoleUser}
	admin := &domain.Principal{SubjectID: "5", Role: domain.RoleAdmin}

	assert.NoError(t, CheckSelfOrAdmin(user, "5"), "owner acts on own resource")

	err := CheckSelfOrAdmin(user, "7")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	assert.NoError(t, CheckSelfOrAdmin(admin, "7"), "admin acts on any resource")

	err = CheckSelfOrAdmin(nil, "7")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHENTICATED", domainCode(t, err))
}
