package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/db/dbtest"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

func TestGrantAndLookupRoles(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.UserRole{}))
	ctx := context.Background()
	admin, patient := uuid.New(), uuid.New()

	require.NoError(t, repo.Grant(ctx, admin, enums.RoleAdmin))
	require.NoError(t, repo.Grant(ctx, admin, enums.RoleAdmin))
	require.NoError(t, repo.Grant(ctx, admin, enums.RolePatient))
	require.NoError(t, repo.Grant(ctx, patient, enums.RolePatient))

	ok, err := repo.IsAdmin(ctx, admin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsAdmin(ctx, patient)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IsAdmin(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)

	roles, err := repo.Roles(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleAdmin, enums.RolePatient}, roles)
}

func TestGrantRejectsUnknownRole(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.UserRole{}))
	err := repo.Grant(context.Background(), uuid.New(), "superuser")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
