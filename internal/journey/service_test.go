package journey

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/db/dbtest"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

func newService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.JourneyLog{})))
	require.NoError(t, err)
	return svc
}

func TestRecordRedactsMetadata(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Record(ctx, Entry{
		UserID:    userID,
		EventType: enums.JourneyEventClientRegistered,
		Action:    "create-client",
		Metadata: map[string]any{
			"email":       "jane@example.com",
			"countryCode": "ZAF",
		},
	}))

	rows, err := svc.List(ctx, ListFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ClientID)
	assert.Equal(t, "create-client", rows[0].Action)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Metadata, &meta))
	assert.Equal(t, "ZAF", meta["countryCode"])
	assert.NotContains(t, string(rows[0].Metadata), "jane@example.com")
}

func TestRecordRejectsUnknownEvent(t *testing.T) {
	svc := newService(t)
	err := svc.Record(context.Background(), Entry{EventType: "made_up"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListFiltersByEvent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	clientID := uuid.New()

	require.NoError(t, svc.Record(ctx, Entry{ClientID: clientID, EventType: enums.JourneyEventOrderCreated, Action: "create-order"}))
	require.NoError(t, svc.Record(ctx, Entry{ClientID: clientID, EventType: enums.JourneyEventOrderSyncFailed, Action: "create-order"}))
	require.NoError(t, svc.Record(ctx, Entry{EventType: enums.JourneyEventStrainCatalogSync, Action: "strain-sync"}))

	rows, err := svc.List(ctx, ListFilter{ClientID: &clientID, EventType: enums.JourneyEventOrderSyncFailed})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.JourneyEventOrderSyncFailed, rows[0].EventType)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
