package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/greengate/internal/clients"
	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/internal/reconcile"
	"github.com/angelmondragon/greengate/internal/strains"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

// adminEntry builds an admin_action journey entry attributed to the
// affected user, with the acting admin in the metadata.
func adminEntry(c *call, userID, clientID uuid.UUID, metadata map[string]any) journey.Entry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["adminUserId"] = c.Principal.UserID.String()
	metadata["action"] = c.Action
	return journey.Entry{
		UserID:    userID,
		ClientID:  clientID,
		EventType: enums.JourneyEventAdminAction,
		Action:    c.Action,
		Metadata:  metadata,
	}
}

type verifyClientParams struct {
	ClientID string `json:"clientId" validate:"required"`
	Approve  *bool  `json:"approve" validate:"required"`
}

// adminVerifyClient approves or rejects a client upstream and mirrors the
// new approval status locally.
func (d *Dispatcher) adminVerifyClient(ctx context.Context, c *call) (any, error) {
	var in verifyClientParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	approval := enums.ApprovalStatusRejected
	c.Params["decision"] = "reject"
	if *in.Approve {
		approval = enums.ApprovalStatusVerified
		c.Params["decision"] = "verify"
	}

	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	payload := resp.Payload()

	local, err := d.mirroredClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if local == nil {
		return payload.Value(), nil
	}

	update := clients.StatusUpdate{IsKYCVerified: local.IsKYCVerified, AdminApproval: approval}
	if rec, ok := drgreen.DecodeObject[drgreen.ClientRecord](payload); ok && rec.UpstreamID() == in.ClientID {
		update.IsKYCVerified = rec.IsKYCVerified
	}
	change, err := d.clients.ApplyStatus(ctx, local.ID, update)
	if err != nil {
		return nil, err
	}
	if change.Changed {
		d.notify(ctx, clients.StatusNotification(change))
	}
	d.record(ctx, adminEntry(c, local.UserID, local.ID, map[string]any{
		"drgreenClientId": in.ClientID,
		"adminApproval":   string(approval),
	}))
	return payload.Value(), nil
}

func (d *Dispatcher) adminDeactivateClient(ctx context.Context, c *call) (any, error) {
	clientID := c.Params.String("clientId")
	if clientID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clientId is required")
	}
	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	local, err := d.mirroredClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		if err := d.clients.Deactivate(ctx, local.ID); err != nil {
			return nil, err
		}
		d.record(ctx, adminEntry(c, local.UserID, local.ID, map[string]any{"drgreenClientId": clientID}))
	}
	return resp.Payload().Value(), nil
}

type updateOrderParams struct {
	OrderID       string `json:"orderId" validate:"required"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
}

// adminUpdateOrder changes an order's status upstream and applies the result
// locally, overriding the terminal-status guard.
func (d *Dispatcher) adminUpdateOrder(ctx context.Context, c *call) (any, error) {
	var in updateOrderParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	body := map[string]any{}
	if in.OrderStatus != "" {
		status, err := enums.ParseOrderStatus(in.OrderStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderStatus")
		}
		body["orderStatus"] = status
	}
	if in.PaymentStatus != "" {
		payment, err := enums.ParsePaymentStatus(in.PaymentStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus")
		}
		body["paymentStatus"] = payment
	}
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderStatus or paymentStatus is required")
	}

	local, err := d.orders.Resolve(ctx, in.OrderID)
	switch {
	case err == nil:
		if local.DrGreenOrderID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been submitted upstream")
		}
		c.Params["orderId"] = *local.DrGreenOrderID
	case pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound:
		local = nil
	default:
		return nil, err
	}

	resp, err := d.send(ctx, c, body)
	if err != nil {
		return nil, err
	}
	payload := resp.Payload()
	if local == nil {
		return payload.Value(), nil
	}

	rec, ok := drgreen.DecodeObject[drgreen.OrderRecord](payload)
	if !ok || rec.EffectiveStatus() == "" {
		rec = drgreen.OrderRecord{OrderID: *local.DrGreenOrderID, OrderStatus: in.OrderStatus, PaymentStatus: in.PaymentStatus}
	}
	if rec.PaymentStatus == "" {
		rec.PaymentStatus = in.PaymentStatus
	}
	raw := payload.Object
	delta, err := d.orders.ApplyUpstream(ctx, local, orders.SyncedInput{Record: rec, Raw: raw}, true)
	if err != nil {
		return nil, err
	}
	if delta.Changed {
		d.notify(ctx, reconcile.OrderNotification(delta))
	}
	d.record(ctx, adminEntry(c, local.UserID, local.ClientID, map[string]any{
		"orderId":       *local.DrGreenOrderID,
		"orderStatus":   delta.Order.Status,
		"paymentStatus": delta.Order.PaymentStatus,
	}))
	return payload.Value(), nil
}

type orderRefParams struct {
	OrderID string `json:"orderId" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

func (d *Dispatcher) adminFlagOrder(ctx context.Context, c *call) (any, error) {
	var in orderRefParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	order, err := d.orders.Resolve(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "flagged by admin"
	}
	flagged, err := d.orders.Flag(ctx, order.ID, reason)
	if err != nil {
		return nil, err
	}
	d.record(ctx, adminEntry(c, order.UserID, order.ClientID, map[string]any{"orderId": order.ID.String(), "reason": reason}))
	return NewOrderView(flagged), nil
}

func (d *Dispatcher) adminResetOrderSync(ctx context.Context, c *call) (any, error) {
	var in orderRefParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	order, err := d.orders.Resolve(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	reset, err := d.orders.Reset(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	d.record(ctx, adminEntry(c, order.UserID, order.ClientID, map[string]any{
		"orderId":        order.ID.String(),
		"fromSyncStatus": order.SyncStatus,
	}))
	return NewOrderView(reset), nil
}

// adminSyncStrains refreshes the strain cache for the requested countries,
// or every configured country when none are given.
func (d *Dispatcher) adminSyncStrains(ctx context.Context, c *call) (any, error) {
	if d.strainSync == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "strain sync not configured")
	}
	var countries []string
	switch raw := c.Params["countries"].(type) {
	case string:
		countries = strains.ParseCountries(raw)
	case []any:
		parts := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		countries = strains.ParseCountries(strings.Join(parts, ","))
	}

	var (
		report *strains.SyncReport
		err    error
	)
	if len(countries) == 0 {
		report, err = d.strainSync.Run(ctx)
	} else {
		report, err = d.strainSync.RunCountries(ctx, countries)
	}
	if report == nil {
		return nil, err
	}
	if err != nil {
		d.logg.Warn(ctx, fmt.Sprintf("strain sync finished with errors: %v", err))
	}
	d.record(ctx, journey.Entry{
		EventType: enums.JourneyEventStrainCatalogSync,
		Action:    c.Action,
		Metadata:  map[string]any{"adminUserId": c.Principal.UserID.String(), "countries": len(report.Countries)},
	})
	return report, nil
}

type journeyLogParams struct {
	UserID    string `json:"userId" validate:"omitempty,uuid"`
	ClientID  string `json:"clientId"`
	EventType string `json:"eventType"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=500"`
}

func (d *Dispatcher) adminJourneyLogs(ctx context.Context, c *call) (any, error) {
	var in journeyLogParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}

	filter := journey.ListFilter{Limit: in.Limit}
	if in.UserID != "" {
		id, err := uuid.Parse(in.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId")
		}
		filter.UserID = &id
	}
	if ref := strings.TrimSpace(in.ClientID); ref != "" {
		clientID, err := d.localClientID(ctx, ref)
		if err != nil {
			return nil, err
		}
		filter.ClientID = &clientID
	}
	if in.EventType != "" {
		event, err := enums.ParseJourneyEvent(in.EventType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid eventType")
		}
		filter.EventType = event
	}

	rows, err := d.journey.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return newJourneyViews(rows), nil
}

// localClientID accepts a local client uuid or an upstream client id.
func (d *Dispatcher) localClientID(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	local, err := d.requireClient(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return local.ID, nil
}

func (d *Dispatcher) adminLookupWallet(ctx context.Context, c *call) (any, error) {
	var in linkWalletParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	mapping, err := d.wallets.Lookup(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}
	return newWalletView(mapping), nil
}
