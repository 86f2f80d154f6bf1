package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/greengate/internal/authz"
	"github.com/angelmondragon/greengate/internal/cart"
	"github.com/angelmondragon/greengate/internal/clients"
	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/internal/reconcile"
	"github.com/angelmondragon/greengate/internal/strains"
	"github.com/angelmondragon/greengate/internal/wallets"
	"github.com/angelmondragon/greengate/pkg/auth"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/metrics"
	"github.com/angelmondragon/greengate/pkg/types"
)

// Request is one proxy call as received from the frontend.
type Request struct {
	Action    string
	Params    Params
	Principal *auth.Principal
}

// Result is the outcome of Dispatch.
type Result struct {
	Action string
	Data   any
	Err    error
}

// HTTPStatus keeps authorization and configuration failures on their own
// status codes. Every other outcome is delivered as 200 with success=false.
func (r Result) HTTPStatus() int {
	if r.Err == nil {
		return http.StatusOK
	}
	switch pub := pkgerrors.ToPublic(r.Err); pub.Code {
	case pkgerrors.CodeUnauthorized, pkgerrors.CodeForbidden, pkgerrors.CodeConfiguration:
		return pub.HTTPStatus
	default:
		return http.StatusOK
	}
}

// Envelope renders the result body.
func (r Result) Envelope() types.Envelope {
	if r.Err == nil {
		return types.Envelope{Success: true, Data: r.Data}
	}
	pub := pkgerrors.ToPublic(r.Err)
	return types.Envelope{
		Success: false,
		Error: &types.APIError{
			Code:    string(pub.Code),
			Message: pub.Message,
			Details: pub.Details,
		},
	}
}

type call struct {
	Action    string
	Route     Route
	Params    Params
	Principal *auth.Principal
	Decision  *authz.Decision
}

type handler func(ctx context.Context, c *call) (any, error)

// Deps groups the dispatcher collaborators. StrainSync and Reconciler are
// optional; the actions that need them fail with CONFIGURATION when absent.
type Deps struct {
	Upstream      drgreen.Doer
	Gate          *authz.Gate
	Clients       clients.Service
	Orders        orders.Service
	Cart          cart.Service
	Strains       strains.Service
	StrainSync    *strains.Syncer
	Wallets       wallets.Service
	Journey       journey.Service
	Notifications notifications.Notifier
	Reconciler    *reconcile.Reconciler
	Metrics       *metrics.UpstreamMetrics
	Logger        *logger.Logger
}

// Dispatcher authorizes proxy actions, forwards them as signed upstream calls
// and keeps the local mirror in step with the results.
type Dispatcher struct {
	upstream   drgreen.Doer
	gate       *authz.Gate
	clients    clients.Service
	orders     orders.Service
	cart       cart.Service
	strains    strains.Service
	strainSync *strains.Syncer
	wallets    wallets.Service
	journey    journey.Service
	notifier   notifications.Notifier
	reconciler *reconcile.Reconciler
	metrics    *metrics.UpstreamMetrics
	logg       *logger.Logger
	hooks      map[string]handler
}

// NewDispatcher validates the required dependencies.
func NewDispatcher(deps Deps) (*Dispatcher, error) {
	switch {
	case deps.Upstream == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drgreen client required")
	case deps.Gate == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "authorization gate required")
	case deps.Clients == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "clients service required")
	case deps.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service required")
	case deps.Cart == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart service required")
	case deps.Strains == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "strains service required")
	case deps.Wallets == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallets service required")
	case deps.Journey == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "journey service required")
	case deps.Notifications == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	d := &Dispatcher{
		upstream:   deps.Upstream,
		gate:       deps.Gate,
		clients:    deps.Clients,
		orders:     deps.Orders,
		cart:       deps.Cart,
		strains:    deps.Strains,
		strainSync: deps.StrainSync,
		wallets:    deps.Wallets,
		journey:    deps.Journey,
		notifier:   deps.Notifications,
		reconciler: deps.Reconciler,
		metrics:    deps.Metrics,
		logg:       deps.Logger,
	}
	d.hooks = map[string]handler{
		authz.ActionHealthCheck: d.healthCheck,
		authz.ActionGetStrains:  d.getStrains,
		authz.ActionGetStrain:   d.getStrain,

		authz.ActionCreateClient: d.createClient,
		authz.ActionGetMyClient:  d.getMyClient,
		authz.ActionLinkWallet:   d.linkWallet,

		authz.ActionUpdateShippingAddress: d.updateShipping,
		authz.ActionAddToCart:             d.addToCart,
		authz.ActionRemoveFromCart:        d.removeFromCart,
		authz.ActionEmptyCart:             d.emptyCart,
		authz.ActionCreateOrder:           d.createOrder,
		authz.ActionGetOrder:              d.getOrder,
		authz.ActionSyncOrders:            d.syncOrders,

		authz.ActionAdminVerifyClient:     d.adminVerifyClient,
		authz.ActionAdminDeactivateClient: d.adminDeactivateClient,
		authz.ActionAdminUpdateOrder:      d.adminUpdateOrder,
		authz.ActionAdminFlagOrder:        d.adminFlagOrder,
		authz.ActionAdminResetOrderSync:   d.adminResetOrderSync,
		authz.ActionAdminSyncStrains:      d.adminSyncStrains,
		authz.ActionAdminJourneyLogs:      d.adminJourneyLogs,
		authz.ActionAdminLookupWallet:     d.adminLookupWallet,
	}
	return d, nil
}

// Dispatch runs one action end to end. It never panics; every failure is
// reported through Result.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (result Result) {
	action := strings.TrimSpace(req.Action)
	result.Action = action
	ctx = d.logg.WithAction(ctx, action)
	if req.Principal != nil {
		ctx = d.logg.WithUserID(ctx, req.Principal.UserID.String())
	}
	params := req.Params
	if params == nil {
		params = Params{}
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result.Data = nil
			result.Err = pkgerrors.New(pkgerrors.CodeInternal, "unexpected error")
			d.logg.Error(ctx, "proxy action panicked", fmt.Errorf("panic: %v", rec))
		}
		d.logResult(ctx, params, result, time.Since(start))
	}()

	if action == "" {
		result.Err = pkgerrors.New(pkgerrors.CodeValidation, "action is required")
		return result
	}

	c, err := d.prepare(ctx, action, params, req.Principal)
	if err != nil {
		result.Err = err
		return result
	}

	h := d.hooks[action]
	if h == nil {
		h = d.forward
	}
	data, err := h(ctx, c)
	if err != nil {
		result.Err = err
		return result
	}
	result.Data = data
	return result
}

// prepare resolves the ownership reference, runs the gate and looks up the
// route. The gate runs before the route lookup so unknown actions are
// rejected as admin-only for everyone else.
func (d *Dispatcher) prepare(ctx context.Context, action string, params Params, principal *auth.Principal) (*call, error) {
	rule := authz.Classify(action)
	route, routed := routes[action]

	var ref string
	if rule.Class == authz.ClassOwnership {
		ref = params.String(route.Ref)
		if ref == "" && rule.Resource == authz.ResourceClient && principal != nil {
			own, err := d.ownClientID(ctx, principal)
			if err != nil {
				return nil, err
			}
			if own != "" {
				ref = own
				params["clientId"] = own
			}
		}
	}

	decision, err := d.gate.Authorize(ctx, authz.Request{
		Action:      action,
		Principal:   principal,
		ResourceRef: ref,
		CountryCode: params.String("countryCode"),
	})
	if err != nil {
		return nil, err
	}
	if !routed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", action))
	}
	if decision.CountryCode != "" {
		params["countryCode"] = decision.CountryCode
	}
	return &call{
		Action:    action,
		Route:     route,
		Params:    params,
		Principal: principal,
		Decision:  decision,
	}, nil
}

// ownClientID returns the session user's upstream client id, or "" when the
// user has not registered.
func (d *Dispatcher) ownClientID(ctx context.Context, principal *auth.Principal) (string, error) {
	client, err := d.clients.GetByUser(ctx, principal.UserID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return "", nil
		}
		return "", err
	}
	if client.DrGreenClientID == nil || !client.IsActive {
		return "", nil
	}
	return *client.DrGreenClientID, nil
}

func (d *Dispatcher) forward(ctx context.Context, c *call) (any, error) {
	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	return resp.Payload().Value(), nil
}

func (d *Dispatcher) send(ctx context.Context, c *call, body any) (*drgreen.Response, error) {
	if c.Route.Local {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("action %s has no upstream route", c.Action))
	}
	path, err := c.Route.ResolvePath(c.Params)
	if err != nil {
		return nil, err
	}
	return d.upstream.Do(ctx, drgreen.Request{
		Action: c.Action,
		Method: c.Route.Method,
		Path:   path,
		Query:  c.Route.ResolveQuery(c.Params),
		Body:   body,
	})
}

func (d *Dispatcher) healthCheck(ctx context.Context, c *call) (any, error) {
	return map[string]any{
		"status":         "ok",
		"defaultCountry": d.gate.DefaultCountry(),
	}, nil
}

// record appends a journey entry. Failures are logged and do not fail the action.
func (d *Dispatcher) record(ctx context.Context, entry journey.Entry) {
	if err := d.journey.Record(ctx, entry); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "event_type", string(entry.EventType)), fmt.Sprintf("journey log failed: %v", err))
	}
}

// notify sends a user notification. Failures are logged and do not fail the action.
func (d *Dispatcher) notify(ctx context.Context, input notifications.NotifyInput) {
	if _, err := d.notifier.Notify(ctx, input); err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "notification_type", string(input.Type)), fmt.Sprintf("notification failed: %v", err))
	}
}

func (d *Dispatcher) logResult(ctx context.Context, params Params, result Result, elapsed time.Duration) {
	fields := map[string]any{
		"params":      logger.Redact(map[string]any(params)),
		"duration_ms": elapsed.Milliseconds(),
		"success":     result.Err == nil,
	}
	if result.Err == nil {
		d.logg.Info(d.logg.WithFields(ctx, fields), "proxy action completed")
		return
	}
	pub := pkgerrors.ToPublic(result.Err)
	fields["error_code"] = string(pub.Code)
	ctx = d.logg.WithFields(ctx, fields)
	switch pub.Code {
	case pkgerrors.CodeInternal, pkgerrors.CodeConfiguration, pkgerrors.CodeDependency:
		d.logg.Error(ctx, "proxy action failed", result.Err)
	default:
		d.logg.Warn(ctx, fmt.Sprintf("proxy action rejected: %s", pub.Message))
	}
}
