package proxy

import (
	"context"
	"fmt"

	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/types"
)

type createOrderParams struct {
	ClientID string `json:"clientId" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type createOrderResult struct {
	Order    OrderView `json:"order"`
	Upstream any       `json:"upstream,omitempty"`
}

// createOrder writes the local order as pending, places it upstream and
// records the outcome: synced with the upstream id, or failed with the error.
// Upstream orders are built from the client's cart, so the local lines always
// come from the mirrored cart.
func (d *Dispatcher) createOrder(ctx context.Context, c *call) (any, error) {
	var in createOrderParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	client, err := d.requireClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.IsApproved() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "client is not approved for ordering")
	}

	items, err := d.orderItems(ctx, client)
	if err != nil {
		return nil, err
	}
	order, err := d.orders.CreatePending(ctx, orders.CreateInput{
		ClientID:        client.ID,
		UserID:          client.UserID,
		Items:           items,
		Currency:        in.Currency,
		ShippingAddress: client.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	d.record(ctx, journey.Entry{
		UserID:    client.UserID,
		ClientID:  client.ID,
		EventType: enums.JourneyEventOrderCreated,
		Action:    c.Action,
		Metadata:  map[string]any{"orderId": order.ID.String(), "items": len(items)},
	})

	resp, sendErr := d.send(ctx, c, map[string]any{"clientId": in.ClientID})
	if sendErr != nil {
		return nil, d.failOrder(ctx, c, client, order, sendErr)
	}

	payload := resp.Payload()
	rec, ok := drgreen.DecodeObject[drgreen.OrderRecord](payload)
	if !ok || rec.UpstreamID() == "" {
		flagged, err := d.orders.Flag(ctx, order.ID, "upstream response did not include an order id")
		if err != nil {
			return nil, err
		}
		return createOrderResult{Order: NewOrderView(flagged), Upstream: payload.Value()}, nil
	}

	synced, err := d.orders.MarkSynced(ctx, order.ID, orders.SyncedInput{Record: rec, Raw: payload.Object})
	if err != nil {
		// The upstream order exists; keep the row for an operator to resolve.
		flagged, flagErr := d.orders.Flag(ctx, order.ID, err.Error())
		if flagErr != nil {
			return nil, err
		}
		return createOrderResult{Order: NewOrderView(flagged), Upstream: payload.Value()}, nil
	}
	if _, err := d.cart.Empty(ctx, client.ID); err != nil {
		d.logg.Warn(ctx, fmt.Sprintf("clear mirrored cart: %v", err))
	}
	return createOrderResult{Order: NewOrderView(synced), Upstream: payload.Value()}, nil
}

func (d *Dispatcher) orderItems(ctx context.Context, client *models.Client) (types.OrderItems, error) {
	items, err := d.cart.Items(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return items, nil
}

func (d *Dispatcher) failOrder(ctx context.Context, c *call, client *models.Client, order *models.Order, cause error) error {
	reason := logger.RedactText(pkgerrors.ToPublic(cause).Message)
	if _, err := d.orders.MarkFailed(ctx, order.ID, reason); err != nil {
		d.logg.Error(ctx, "mark order failed", err)
	}
	d.record(ctx, journey.Entry{
		UserID:    client.UserID,
		ClientID:  client.ID,
		EventType: enums.JourneyEventOrderSyncFailed,
		Action:    c.Action,
		Metadata:  map[string]any{"orderId": order.ID.String(), "reason": reason},
	})
	d.notify(ctx, notifications.NotifyInput{
		UserID:   client.UserID,
		Type:     enums.NotificationTypeOrderSyncFailed,
		Title:    "Order could not be placed",
		Message:  "We could not submit your order. Please try again shortly.",
		Link:     "/dashboard/orders",
		Metadata: map[string]any{"orderId": order.ID.String()},
	})

	if typed := pkgerrors.As(cause); typed != nil {
		details := map[string]any{"orderId": order.ID.String()}
		if existing, ok := typed.Details().(map[string]any); ok {
			for k, v := range existing {
				details[k] = v
			}
		}
		return pkgerrors.Wrap(typed.Code(), cause, typed.Message()).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, "order submission failed").
		WithDetails(map[string]any{"orderId": order.ID.String()})
}

// getOrder accepts a local or upstream order id. Orders that never reached
// upstream are answered from the local mirror.
func (d *Dispatcher) getOrder(ctx context.Context, c *call) (any, error) {
	order, err := d.orders.Resolve(ctx, c.Params.String("orderId"))
	switch {
	case err == nil:
		if order.DrGreenOrderID == nil {
			return NewOrderView(order), nil
		}
		c.Params["orderId"] = *order.DrGreenOrderID
	case pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound:
		return nil, err
	}
	return d.forward(ctx, c)
}

// syncOrders runs the reconciler for one client on demand.
func (d *Dispatcher) syncOrders(ctx context.Context, c *call) (any, error) {
	if d.reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "order reconciler not configured")
	}
	client, err := d.requireClient(ctx, c.Params.String("clientId"))
	if err != nil {
		return nil, err
	}
	report, err := d.reconciler.Reconcile(ctx, client)
	if err != nil {
		return nil, err
	}
	return report, nil
}
