package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/auth"
	"github.com/angelmondragon/greengate/pkg/config"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/metrics"
)

type fakeRoles struct {
	admins map[uuid.UUID]bool
	err    error
}

func (f fakeRoles) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.admins[userID], f.err
}

type fakeOwners struct {
	owners map[string]uuid.UUID
	err    error
	calls  int
}

func (f *fakeOwners) OwnerOf(ctx context.Context, kind ResourceKind, ref string) (uuid.UUID, error) {
	f.calls++
	if f.err != nil {
		return uuid.Nil, f.err
	}
	owner, ok := f.owners[string(kind)+":"+ref]
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return owner, nil
}

var catalogConfig = config.CatalogConfig{OpenCountries: []string{"ZAF", "tha"}, DefaultCountry: "ZAF"}

func newGate(t *testing.T, roles RoleChecker, owners OwnerResolver) *Gate {
	t.Helper()
	gate, err := NewGate(catalogConfig, roles, owners, nil)
	require.NoError(t, err)
	return gate
}

func principal() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Email: "p@example.com"}
}

func TestCatalogCountryGating(t *testing.T) {
	gate := newGate(t, fakeRoles{}, &fakeOwners{})
	ctx := context.Background()

	decision, err := gate.Authorize(ctx, Request{Action: ActionGetStrains, CountryCode: "ZAF"})
	require.NoError(t, err)
	assert.Equal(t, "ZAF", decision.CountryCode)

	_, err = gate.Authorize(ctx, Request{Action: ActionGetStrains, CountryCode: "GBR"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = gate.Authorize(ctx, Request{Action: ActionGetStrain, CountryCode: "gbr", Principal: principal()})
	require.NoError(t, err)

	decision, err = gate.Authorize(ctx, Request{Action: ActionGetStrains})
	require.NoError(t, err)
	assert.Equal(t, "ZAF", decision.CountryCode)

	_, err = gate.Authorize(ctx, Request{Action: ActionGetStrains, CountryCode: "tha"})
	require.NoError(t, err)
}

func TestAuthenticatedRequiresPrincipal(t *testing.T) {
	gate := newGate(t, fakeRoles{}, &fakeOwners{})
	_, err := gate.Authorize(context.Background(), Request{Action: ActionCreateClient})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = gate.Authorize(context.Background(), Request{Action: ActionCreateClient, Principal: principal()})
	assert.NoError(t, err)
}

func TestOwnershipForeignAndMissingLookIdentical(t *testing.T) {
	owner, stranger := principal(), principal()
	owners := &fakeOwners{owners: map[string]uuid.UUID{"client:dg-1": owner.UserID}}
	gate := newGate(t, fakeRoles{}, owners)
	ctx := context.Background()

	_, err := gate.Authorize(ctx, Request{Action: ActionGetClient, Principal: owner, ResourceRef: "dg-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, owners.calls)

	_, foreign := gate.Authorize(ctx, Request{Action: ActionGetClient, Principal: stranger, ResourceRef: "dg-1"})
	_, missing := gate.Authorize(ctx, Request{Action: ActionGetClient, Principal: stranger, ResourceRef: "dg-404"})
	_, empty := gate.Authorize(ctx, Request{Action: ActionGetClient, Principal: stranger})

	for _, err := range []error{foreign, missing, empty} {
		require.Error(t, err)
		typed := pkgerrors.As(err)
		assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
		assert.Equal(t, NotAccessibleMessage, typed.Message())
		assert.Nil(t, typed.Details())
	}
	assert.Equal(t, foreign.Error(), missing.Error())
	assert.Equal(t, foreign.Error(), empty.Error())
}

func TestOwnershipAdminBypass(t *testing.T) {
	admin := principal()
	gate := newGate(t, fakeRoles{admins: map[uuid.UUID]bool{admin.UserID: true}}, &fakeOwners{})

	decision, err := gate.Authorize(context.Background(), Request{Action: ActionGetOrder, Principal: admin, ResourceRef: "ord-1"})
	require.NoError(t, err)
	assert.True(t, decision.IsAdmin)
}

func TestOwnershipLookupFailureIsNotForbidden(t *testing.T) {
	gate := newGate(t, fakeRoles{}, &fakeOwners{err: errors.New("db down")})
	_, err := gate.Authorize(context.Background(), Request{Action: ActionGetCart, Principal: principal(), ResourceRef: "dg-1"})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestAdminActions(t *testing.T) {
	admin, patient := principal(), principal()
	gate := newGate(t, fakeRoles{admins: map[uuid.UUID]bool{admin.UserID: true}}, &fakeOwners{})
	ctx := context.Background()

	_, err := gate.Authorize(ctx, Request{Action: ActionAdminListClients})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = gate.Authorize(ctx, Request{Action: ActionAdminListClients, Principal: patient})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	decision, err := gate.Authorize(ctx, Request{Action: ActionAdminListClients, Principal: admin})
	require.NoError(t, err)
	assert.True(t, decision.IsAdmin)
}

func TestUnknownActionFailsClosed(t *testing.T) {
	assert.Equal(t, ClassAdmin, Classify("drop-database").Class)
	assert.False(t, Known("drop-database"))

	gate := newGate(t, fakeRoles{}, &fakeOwners{})
	_, err := gate.Authorize(context.Background(), Request{Action: "drop-database", Principal: principal()})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestEveryActionHasExactlyOneClass(t *testing.T) {
	valid := map[AccessClass]bool{ClassPublic: true, ClassAuthenticated: true, ClassOwnership: true, ClassAdmin: true}
	for _, action := range Actions() {
		rule := Classify(action)
		assert.True(t, valid[rule.Class], action)
		if rule.Class == ClassOwnership {
			assert.NotEqual(t, ResourceNone, rule.Resource, action)
		}
	}
}

func TestDenialsAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewUpstreamMetrics(reg)
	gate, err := NewGate(catalogConfig, fakeRoles{}, &fakeOwners{}, m)
	require.NoError(t, err)

	_, _ = gate.Authorize(context.Background(), Request{Action: ActionGetStrains, CountryCode: "GBR"})
	_, _ = gate.Authorize(context.Background(), Request{Action: ActionAdminJourneyLogs, Principal: principal()})

	count, err := testutil.GatherAndCount(reg, "greengate_proxy_authz_denials_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewGateRequiresDefaultCountry(t *testing.T) {
	_, err := NewGate(config.CatalogConfig{}, fakeRoles{}, &fakeOwners{}, nil)
	assert.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))
}
