package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/greengate/internal/authz"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

// Route describes how an action reaches the upstream API.
type Route struct {
	Method string
	// Path may hold {param} placeholders filled from the action params.
	Path string
	// Query lists params forwarded as query string values.
	Query []string
	// Ref names the param carrying the resource checked for ownership.
	Ref string
	// Local routes are answered from the local mirror without an upstream call.
	Local bool
}

var listQuery = []string{"page", "take", "orderBy", "search", "searchBy"}

// routes covers every action known to the authorization table.
var routes = map[string]Route{
	authz.ActionHealthCheck: {Local: true},
	authz.ActionGetStrains:  {Method: http.MethodGet, Path: "strains", Query: []string{"countryCode", "page", "take", "orderBy"}},
	authz.ActionGetStrain:   {Method: http.MethodGet, Path: "strains/{strainId}", Query: []string{"countryCode"}},

	authz.ActionCreateClient: {Method: http.MethodPost, Path: "dapp/clients"},
	authz.ActionGetMyClient:  {Method: http.MethodGet, Path: "dapp/clients/{clientId}"},
	authz.ActionLinkWallet:   {Local: true},

	authz.ActionGetClient:             {Method: http.MethodGet, Path: "dapp/clients/{clientId}", Ref: "clientId"},
	authz.ActionUpdateShippingAddress: {Method: http.MethodPatch, Path: "dapp/clients/{clientId}", Ref: "clientId"},
	authz.ActionGetCart:               {Method: http.MethodGet, Path: "dapp/carts", Query: []string{"clientId"}, Ref: "clientId"},
	authz.ActionAddToCart:             {Method: http.MethodPost, Path: "dapp/carts", Ref: "clientId"},
	authz.ActionRemoveFromCart:        {Method: http.MethodDelete, Path: "dapp/carts/{clientId}", Query: []string{"strainId"}, Ref: "clientId"},
	authz.ActionEmptyCart:             {Method: http.MethodDelete, Path: "dapp/carts/client/{clientId}", Ref: "clientId"},
	authz.ActionCreateOrder:           {Method: http.MethodPost, Path: "dapp/orders", Ref: "clientId"},
	authz.ActionGetOrders:             {Method: http.MethodGet, Path: "dapp/clients/{clientId}/orders", Query: listQuery, Ref: "clientId"},
	authz.ActionGetOrder:              {Method: http.MethodGet, Path: "dapp/orders/{orderId}", Ref: "orderId"},
	authz.ActionSyncOrders:            {Local: true, Ref: "clientId"},

	authz.ActionAdminListClients:      {Method: http.MethodGet, Path: "dapp/clients", Query: append([]string{"adminApproval", "isKYCVerified"}, listQuery...)},
	authz.ActionAdminGetClient:        {Method: http.MethodGet, Path: "dapp/clients/{clientId}"},
	authz.ActionAdminVerifyClient:     {Method: http.MethodPatch, Path: "dapp/clients/{clientId}/{decision}"},
	authz.ActionAdminDeactivateClient: {Method: http.MethodPatch, Path: "dapp/clients/{clientId}/deactivate"},
	authz.ActionAdminListOrders:       {Method: http.MethodGet, Path: "dapp/orders", Query: append([]string{"orderStatus", "paymentStatus"}, listQuery...)},
	authz.ActionAdminUpdateOrder:      {Method: http.MethodPatch, Path: "dapp/orders/{orderId}/order-status"},
	authz.ActionAdminFlagOrder:        {Local: true},
	authz.ActionAdminResetOrderSync:   {Local: true},
	authz.ActionAdminSyncStrains:      {Local: true},
	authz.ActionAdminJourneyLogs:      {Local: true},
	authz.ActionAdminLookupWallet:     {Local: true},
}

// RouteFor returns the route registered for action.
func RouteFor(action string) (Route, bool) {
	route, ok := routes[action]
	return route, ok
}

// Actions lists every routed action.
func Actions() []string {
	out := make([]string, 0, len(routes))
	for action := range routes {
		out = append(out, action)
	}
	return out
}

// ResolvePath fills the {param} placeholders of the route path. Missing
// values are a validation error; values are path-escaped.
func (r Route) ResolvePath(params Params) (string, error) {
	path := r.Path
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			return path, nil
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", pkgerrors.New(pkgerrors.CodeConfiguration, "malformed route path")
		}
		name := path[start+1 : start+end]
		value := params.String(name)
		if value == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
		}
		path = path[:start] + url.PathEscape(value) + path[start+end+1:]
	}
}

// ResolveQuery copies the route's query params that are present.
func (r Route) ResolveQuery(params Params) url.Values {
	if len(r.Query) == 0 {
		return nil
	}
	values := url.Values{}
	for _, name := range r.Query {
		if value := params.String(name); value != "" {
			values.Set(name, value)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
