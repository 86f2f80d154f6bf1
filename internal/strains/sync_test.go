package strains

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/drgreen"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

type fakeUpstream struct {
	doFn  func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error)
	calls []drgreen.Request
}

func (f *fakeUpstream) Do(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
	f.calls = append(f.calls, req)
	return f.doFn(ctx, req)
}

func pageResponse(t *testing.T, hasNext bool, items ...map[string]any) *drgreen.Response {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"success": true,
		"data": map[string]any{
			"strains":     items,
			"pageMetaDto": map[string]any{"page": 1, "hasNextPage": hasNext},
		},
	})
	require.NoError(t, err)
	return &drgreen.Response{Status: 200, Body: body}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func TestSyncerWalksPagesPerCountry(t *testing.T) {
	svc := newTestService(t)
	upstream := &fakeUpstream{}
	upstream.doFn = func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		country := req.Query.Get("countryCode")
		switch req.Query.Get("page") {
		case "1":
			return pageResponse(t, true, map[string]any{"id": country + "-1", "name": "One"}), nil
		default:
			return pageResponse(t, false, map[string]any{"id": country + "-2", "name": "Two"}), nil
		}
	}

	syncer, err := NewSyncer(upstream, svc, []string{"zaf", "ZAF", "tha", "bad"}, 1, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"ZAF", "THA"}, syncer.Countries())

	report, err := syncer.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Countries, 2)
	assert.Equal(t, 2, report.Countries[0].Pages)
	assert.Equal(t, 2, report.Countries[0].Upserted)
	assert.Len(t, upstream.calls, 4)
	for _, call := range upstream.calls {
		assert.Equal(t, ActionSyncStrains, call.Action)
		assert.Equal(t, "strains", call.Path)
	}

	cached, err := svc.ListActive(context.Background(), "THA", 1, 10)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestSyncerContinuesAfterCountryFailure(t *testing.T) {
	svc := newTestService(t)
	upstream := &fakeUpstream{}
	upstream.doFn = func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		if req.Query.Get("countryCode") == "GBR" {
			return nil, errors.New("upstream down")
		}
		return pageResponse(t, false, map[string]any{"id": "s-1", "name": "One"}), nil
	}
	syncer, err := NewSyncer(upstream, svc, []string{"GBR", "ZAF"}, 10, testLogger())
	require.NoError(t, err)

	report, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GBR")
	require.Len(t, report.Countries, 2)
	assert.NotEmpty(t, report.Countries[0].Error)
	assert.Equal(t, 1, report.Countries[1].Upserted)
}

func TestSyncerKeepsCacheWhenCatalogIsNotAList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	upstream := &fakeUpstream{}
	upstream.doFn = func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		return pageResponse(t, false,
			map[string]any{"id": "s-1", "name": "One"},
			map[string]any{"id": "s-2", "name": "Two"},
		), nil
	}
	syncer, err := NewSyncer(upstream, svc, []string{"ZAF"}, 10, testLogger())
	require.NoError(t, err)
	_, err = syncer.Run(ctx)
	require.NoError(t, err)

	upstream.doFn = func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		return &drgreen.Response{Status: 200, Body: []byte(`{"success":true,"data":{"message":"maintenance"}}`)}, nil
	}
	report, err := syncer.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))
	require.Len(t, report.Countries, 1)
	assert.Zero(t, report.Countries[0].Deactivated)

	cached, err := svc.ListActive(ctx, "ZAF", 1, 10)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestSyncerKeepsCacheWhenEveryItemIsMalformed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyCatalog(ctx, "ZAF", raws(`{"id":"s-1","name":"One"}`), true)
	require.NoError(t, err)

	upstream := &fakeUpstream{doFn: func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		return pageResponse(t, false, map[string]any{"name": "no id"}), nil
	}}
	syncer, err := NewSyncer(upstream, svc, []string{"ZAF"}, 10, testLogger())
	require.NoError(t, err)
	report, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Countries[0].Deactivated)

	cached, err := svc.ListActive(ctx, "ZAF", 1, 10)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestRunCountriesRejectsUnknownCodeWithoutCalling(t *testing.T) {
	upstream := &fakeUpstream{doFn: func(ctx context.Context, req drgreen.Request) (*drgreen.Response, error) {
		return pageResponse(t, false), nil
	}}
	syncer, err := NewSyncer(upstream, newTestService(t), []string{"ZAF"}, 10, testLogger())
	require.NoError(t, err)

	report, err := syncer.RunCountries(context.Background(), []string{"bad"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, "BAD", report.Countries[0].Country)
	assert.Empty(t, upstream.calls)
}

func TestNewSyncerRequiresCountries(t *testing.T) {
	_, err := NewSyncer(&fakeUpstream{}, newTestService(t), []string{"x"}, 10, testLogger())
	assert.Error(t, err)

	_, err = NewSyncer(&fakeUpstream{}, newTestService(t), []string{"BAD", "ZZZ"}, 10, testLogger())
	assert.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))
}

func TestParseCountries(t *testing.T) {
	assert.Equal(t, []string{"ZAF", "GBR"}, ParseCountries(" zaf, ,gbr"))
}
