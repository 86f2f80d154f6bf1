package strains

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/db/dbtest"
	"github.com/angelmondragon/greengate/pkg/db/models"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.Strain{})))
	require.NoError(t, err)
	return svc
}

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

func TestApplyCatalogUpsertsAndDeactivates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.ApplyCatalog(ctx, "zaf", raws(
		`{"id":"s-1","name":"Blue Dream","retailPrice":12.5,"thc":21.5,"feelings":["Relaxed","Happy"]}`,
		`{"id":"s-2","name":"Northern Lights","retailPrice":"9.90"}`,
		`{"name":"missing id"}`,
	), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Deactivated)

	list, err := svc.ListActive(ctx, "ZAF", 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Blue Dream", list[0].Name)
	assert.Equal(t, []string{"Relaxed", "Happy"}, list[0].Effects)
	require.NotNil(t, list[0].THC)
	assert.InDelta(t, 21.5, *list[0].THC, 0.001)

	res, err = svc.ApplyCatalog(ctx, "ZAF", raws(`{"id":"s-2","name":"Northern Lights v2","retailPrice":10}`), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deactivated)

	list, err = svc.ListActive(ctx, "ZAF", 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Northern Lights v2", list[0].Name)

	other, err := svc.ListActive(ctx, "GBR", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestApplyCatalogPartialKeepsExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyCatalog(ctx, "THA", raws(`{"id":"s-1","name":"A"}`, `{"id":"s-2","name":"B"}`), true)
	require.NoError(t, err)

	res, err := svc.ApplyCatalog(ctx, "THA", raws(`{"id":"s-3","name":"C"}`), false)
	require.NoError(t, err)
	assert.Zero(t, res.Deactivated)

	list, err := svc.ListActive(ctx, "THA", 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestApplyCatalogRejectsBadCountry(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ApplyCatalog(context.Background(), "ZA", nil, true)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.ApplyCatalog(context.Background(), "BAD", nil, true)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestApplyCatalogWithoutValidItemsKeepsCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyCatalog(ctx, "ZAF", raws(`{"id":"s-1","name":"A"}`, `{"id":"s-2","name":"B"}`), true)
	require.NoError(t, err)

	res, err := svc.ApplyCatalog(ctx, "ZAF", raws(`{"name":"no id"}`, `not json`), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Deactivated)

	res, err = svc.ApplyCatalog(ctx, "ZAF", nil, true)
	require.NoError(t, err)
	assert.Zero(t, res.Deactivated)

	list, err := svc.ListActive(ctx, "ZAF", 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCountryCode(t *testing.T) {
	for _, in := range []string{"zaf", " GBR ", "PRT", "tha"} {
		code, ok := CountryCode(in)
		assert.True(t, ok, in)
		assert.Len(t, code, 3)
	}
	for _, in := range []string{"", "ZA", "BAD", "ZAFX", "710"} {
		_, ok := CountryCode(in)
		assert.False(t, ok, in)
	}
}

func TestGetCachedStrain(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyCatalog(ctx, "ZAF", raws(`{"id":"s-1","name":"Blue Dream","description":"sweet"}`), true)
	require.NoError(t, err)

	rec, err := svc.Get(ctx, "zaf", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "sweet", rec.Description)

	_, err = svc.Get(ctx, "ZAF", "nope")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
