package clients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/db/dbtest"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/types"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.Client{})))
	require.NoError(t, err)
	return svc
}

func record(id string) drgreen.ClientRecord {
	return drgreen.ClientRecord{
		ID:            id,
		Email:         "Patient@Example.com",
		AdminApproval: "pending",
		Shipping: &types.ShippingAddress{
			Address1:    "1 Long Street",
			City:        "Cape Town",
			Country:     "South Africa",
			CountryCode: "zaf",
			PostalCode:  "8001",
		},
	}
}

func TestMirrorCreatesThenUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: record("dg-1"), Raw: []byte(`{"id":"dg-1"}`)})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "patient@example.com", first.Client.Email)
	assert.Equal(t, "ZAF", first.Client.CountryCode)
	assert.Equal(t, enums.ApprovalStatusPending, first.Client.AdminApproval)
	assert.True(t, first.Client.IsActive)

	rec := record("dg-1")
	rec.IsKYCVerified = true
	rec.AdminApproval = "VERIFIED"
	second, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: rec})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Client.ID, second.Client.ID)

	stored, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, stored.IsApproved())
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "Cape Town", stored.ShippingAddress.City)

	owner, err := svc.OwnerOf(ctx, "dg-1")
	require.NoError(t, err)
	assert.Equal(t, userID, owner)
}

func TestMirrorRejectsCrossUserLinks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Mirror(ctx, MirrorInput{UserID: alice, Record: record("dg-alice")})
	require.NoError(t, err)

	_, err = svc.Mirror(ctx, MirrorInput{UserID: bob, Record: record("dg-alice")})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = svc.Mirror(ctx, MirrorInput{UserID: alice, Record: record("dg-other")})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestEnsureRegistrable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.EnsureRegistrable(ctx, userID))

	_, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: record("dg-2")})
	require.NoError(t, err)

	err = svc.EnsureRegistrable(ctx, userID)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestEnsureRegistrableRejectsDeactivatedClient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	res, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: record("dg-5")})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, res.Client.ID))

	err = svc.EnsureRegistrable(ctx, userID)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestOwnerOfUnknownClient(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.OwnerOf(context.Background(), "missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestApplyStatusReportsChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, err := svc.Mirror(ctx, MirrorInput{UserID: uuid.New(), Record: record("dg-3")})
	require.NoError(t, err)

	change, err := svc.ApplyStatus(ctx, res.Client.ID, StatusUpdate{IsKYCVerified: false, AdminApproval: enums.ApprovalStatusPending})
	require.NoError(t, err)
	assert.False(t, change.Changed)

	change, err = svc.ApplyStatus(ctx, res.Client.ID, StatusUpdate{IsKYCVerified: true, AdminApproval: enums.ApprovalStatusVerified})
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.False(t, change.PreviousKYC)
	assert.Equal(t, enums.ApprovalStatusPending, change.PreviousApprove)

	pending, err := svc.ListNeedingReview(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeactivateKeepsRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	res, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: record("dg-4")})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, res.Client.ID))

	stored, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	syncable, err := svc.ListSyncable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, syncable)

	err = svc.Deactivate(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateShippingAndTouch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	res, err := svc.Mirror(ctx, MirrorInput{UserID: userID, Record: record("dg-5")})
	require.NoError(t, err)

	err = svc.UpdateShipping(ctx, res.Client.ID, types.ShippingAddress{Address1: "x"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	require.NoError(t, svc.UpdateShipping(ctx, res.Client.ID, types.ShippingAddress{
		Address1: "10 Downing Street", City: "London", Country: "United Kingdom", CountryCode: "gbr", PostalCode: "SW1A 2AA",
	}))
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TouchSynced(ctx, res.Client.ID, at))

	stored, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "GBR", stored.CountryCode)
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "London", stored.ShippingAddress.City)
	require.NotNil(t, stored.LastSyncedAt)
	assert.True(t, at.Equal(*stored.LastSyncedAt))
}
