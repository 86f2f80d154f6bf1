package authz

import "sort"

// AccessClass is the authorization requirement of a proxy action.
type AccessClass string

const (
	ClassPublic        AccessClass = "public"
	ClassAuthenticated AccessClass = "authenticated"
	ClassOwnership     AccessClass = "ownership"
	ClassAdmin         AccessClass = "admin"
)

// ResourceKind names what an ownership-checked action refers to.
type ResourceKind string

const (
	ResourceNone   ResourceKind = ""
	ResourceClient ResourceKind = "client"
	ResourceOrder  ResourceKind = "order"
)

// Rule is the authorization entry for one action.
type Rule struct {
	Class AccessClass
	// CountryGated public actions allow anonymous callers only for open countries.
	CountryGated bool
	Resource     ResourceKind
}

// Action names accepted by the proxy endpoint.
const (
	ActionHealthCheck = "health-check"
	ActionGetStrains  = "get-strains"
	ActionGetStrain   = "get-strain"

	ActionCreateClient = "create-client"
	ActionGetMyClient  = "get-my-client"
	ActionLinkWallet   = "link-wallet"

	ActionGetClient             = "get-client"
	ActionUpdateShippingAddress = "update-shipping-address"
	ActionGetCart               = "get-cart"
	ActionAddToCart             = "add-to-cart"
	ActionRemoveFromCart        = "remove-from-cart"
	ActionEmptyCart             = "empty-cart"
	ActionCreateOrder           = "create-order"
	ActionGetOrders             = "get-orders"
	ActionGetOrder              = "get-order"
	ActionSyncOrders            = "sync-orders"

	ActionAdminListClients      = "admin-list-clients"
	ActionAdminGetClient        = "admin-get-client"
	ActionAdminVerifyClient     = "admin-verify-client"
	ActionAdminDeactivateClient = "admin-deactivate-client"
	ActionAdminListOrders       = "admin-list-orders"
	ActionAdminUpdateOrder      = "admin-update-order"
	ActionAdminFlagOrder        = "admin-flag-order"
	ActionAdminResetOrderSync   = "admin-reset-order-sync"
	ActionAdminSyncStrains      = "admin-sync-strains"
	ActionAdminJourneyLogs      = "admin-journey-logs"
	ActionAdminLookupWallet     = "admin-lookup-wallet"
)

var rules = map[string]Rule{
	ActionHealthCheck: {Class: ClassPublic},
	ActionGetStrains:  {Class: ClassPublic, CountryGated: true},
	ActionGetStrain:   {Class: ClassPublic, CountryGated: true},

	ActionCreateClient: {Class: ClassAuthenticated},
	ActionGetMyClient:  {Class: ClassAuthenticated},
	ActionLinkWallet:   {Class: ClassAuthenticated},

	ActionGetClient:             {Class: ClassOwnership, Resource: ResourceClient},
	ActionUpdateShippingAddress: {Class: ClassOwnership, Resource: ResourceClient},
	ActionGetCart:               {Class: ClassOwnership, Resource: ResourceClient},
	ActionAddToCart:             {Class: ClassOwnership, Resource: ResourceClient},
	ActionRemoveFromCart:        {Class: ClassOwnership, Resource: ResourceClient},
	ActionEmptyCart:             {Class: ClassOwnership, Resource: ResourceClient},
	ActionCreateOrder:           {Class: ClassOwnership, Resource: ResourceClient},
	ActionGetOrders:             {Class: ClassOwnership, Resource: ResourceClient},
	ActionGetOrder:              {Class: ClassOwnership, Resource: ResourceOrder},
	ActionSyncOrders:            {Class: ClassOwnership, Resource: ResourceClient},

	ActionAdminListClients:      {Class: ClassAdmin},
	ActionAdminGetClient:        {Class: ClassAdmin},
	ActionAdminVerifyClient:     {Class: ClassAdmin},
	ActionAdminDeactivateClient: {Class: ClassAdmin},
	ActionAdminListOrders:       {Class: ClassAdmin},
	ActionAdminUpdateOrder:      {Class: ClassAdmin},
	ActionAdminFlagOrder:        {Class: ClassAdmin},
	ActionAdminResetOrderSync:   {Class: ClassAdmin},
	ActionAdminSyncStrains:      {Class: ClassAdmin},
	ActionAdminJourneyLogs:      {Class: ClassAdmin},
	ActionAdminLookupWallet:     {Class: ClassAdmin},
}

// Classify returns the rule for action. Unknown actions are admin-only.
func Classify(action string) Rule {
	if rule, ok := rules[action]; ok {
		return rule
	}
	return Rule{Class: ClassAdmin}
}

// Known reports whether action has an explicit rule.
func Known(action string) bool {
	_, ok := rules[action]
	return ok
}

// Actions lists every classified action in sorted order.
func Actions() []string {
	out := make([]string, 0, len(rules))
	for action := range rules {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}
