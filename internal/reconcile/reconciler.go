package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// ActionReconcile labels upstream calls made while reconciling.
const ActionReconcile = "sync-orders"

// ClientOrdersPath is the upstream order list of one client.
func ClientOrdersPath(drgreenClientID string) string {
	return fmt.Sprintf("dapp/clients/%s/orders", url.PathEscape(drgreenClientID))
}

// ClientStore is the client mirror surface used by the reconciler.
type ClientStore interface {
	TouchSynced(ctx context.Context, clientID uuid.UUID, at time.Time) error
}

// OrderStore is the order mirror surface used by the reconciler.
type OrderStore interface {
	GetByDrGreenID(ctx context.Context, drgreenOrderID string) (*models.Order, error)
	ApplyUpstream(ctx context.Context, order *models.Order, input orders.SyncedInput, override bool) (*orders.StatusDelta, error)
	InsertFromUpstream(ctx context.Context, client *models.Client, input orders.SyncedInput) (*models.Order, error)
}

// Report summarizes one reconcile run for a client.
type Report struct {
	ClientID  uuid.UUID  `json:"clientId"`
	Skipped   bool       `json:"skipped"`
	Fetched   int        `json:"fetched"`
	Updated   int        `json:"updated"`
	Inserted  int        `json:"inserted"`
	Unchanged int        `json:"unchanged"`
	Failed    int        `json:"failed"`
	SyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
}

// Reconciler brings local orders in line with the upstream order list. At
// most one run per client is in flight; overlapping calls return a skipped
// report instead of queueing.
type Reconciler struct {
	upstream drgreen.Doer
	clients  ClientStore
	orders   OrderStore
	notifier notifications.Notifier
	journal  journey.Recorder
	logg     *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// Params groups the reconciler dependencies.
type Params struct {
	Upstream drgreen.Doer
	Clients  ClientStore
	Orders   OrderStore
	Notifier notifications.Notifier
	Journal  journey.Recorder
	Logger   *logger.Logger
}

// NewReconciler validates dependencies. Journal is optional.
func NewReconciler(p Params) (*Reconciler, error) {
	switch {
	case p.Upstream == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drgreen client required")
	case p.Clients == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "client store required")
	case p.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order store required")
	case p.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Reconciler{
		upstream: p.Upstream,
		clients:  p.Clients,
		orders:   p.Orders,
		notifier: p.Notifier,
		journal:  p.Journal,
		logg:     p.Logger,
		now:      time.Now,
		inFlight: make(map[uuid.UUID]struct{}),
	}, nil
}

// TryBegin marks clientID as in flight. It returns false when a run is already active.
func (r *Reconciler) TryBegin(clientID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[clientID]; busy {
		return false
	}
	r.inFlight[clientID] = struct{}{}
	return true
}

// End clears the in-flight mark for clientID.
func (r *Reconciler) End(clientID uuid.UUID) {
	r.mu.Lock()
	delete(r.inFlight, clientID)
	r.mu.Unlock()
}

// Reconcile fetches the client's upstream orders and writes back any deltas.
func (r *Reconciler) Reconcile(ctx context.Context, client *models.Client) (*Report, error) {
	if client == nil || client.DrGreenClientID == nil || *client.DrGreenClientID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client has no upstream id")
	}
	report := &Report{ClientID: client.ID}
	if !r.TryBegin(client.ID) {
		report.Skipped = true
		return report, nil
	}
	defer r.End(client.ID)

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"client_id":         client.ID.String(),
		"drgreen_client_id": *client.DrGreenClientID,
	})

	resp, err := r.upstream.Do(ctx, drgreen.Request{
		Action: ActionReconcile,
		Method: http.MethodGet,
		Path:   ClientOrdersPath(*client.DrGreenClientID),
	})
	if err != nil {
		return report, err
	}
	items := resp.Payload().Items
	report.Fetched = len(items)

	var errs error
	for _, raw := range items {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if err := r.reconcileOne(ctx, client, raw, report); err != nil {
			report.Failed++
			errs = multierr.Append(errs, err)
		}
	}
	if ctx.Err() != nil {
		return report, errs
	}

	syncedAt := r.now().UTC()
	if err := r.clients.TouchSynced(ctx, client.ID, syncedAt); err != nil {
		return report, multierr.Append(errs, err)
	}
	report.SyncedAt = &syncedAt

	if r.journal != nil && report.Updated+report.Inserted > 0 {
		if err := r.journal.Record(ctx, journey.Entry{
			UserID:    client.UserID,
			ClientID:  client.ID,
			EventType: enums.JourneyEventOrdersReconciled,
			Action:    ActionReconcile,
			Metadata: map[string]any{
				"updated":  report.Updated,
				"inserted": report.Inserted,
			},
		}); err != nil {
			r.logg.Warn(logCtx, fmt.Sprintf("journey log failed: %v", err))
		}
	}

	r.logg.Info(r.logg.WithFields(logCtx, map[string]any{
		"fetched":   report.Fetched,
		"updated":   report.Updated,
		"inserted":  report.Inserted,
		"unchanged": report.Unchanged,
		"failed":    report.Failed,
	}), "orders reconciled")
	return report, errs
}

func (r *Reconciler) reconcileOne(ctx context.Context, client *models.Client, raw json.RawMessage, report *Report) error {
	var rec drgreen.OrderRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UpstreamID() == "" {
		report.Unchanged++
		return nil
	}
	input := orders.SyncedInput{Record: rec, Raw: raw}

	local, err := r.orders.GetByDrGreenID(ctx, rec.UpstreamID())
	switch {
	case pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound:
		if _, err := r.orders.InsertFromUpstream(ctx, client, input); err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
				report.Unchanged++
				return nil
			}
			return fmt.Errorf("insert order %s: %w", rec.UpstreamID(), err)
		}
		report.Inserted++
		return nil
	case err != nil:
		return fmt.Errorf("load order %s: %w", rec.UpstreamID(), err)
	}

	if local.ClientID != client.ID {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order %s belongs to another client", rec.UpstreamID()))
	}

	delta, err := r.orders.ApplyUpstream(ctx, local, input, false)
	if err != nil {
		return fmt.Errorf("update order %s: %w", rec.UpstreamID(), err)
	}
	if !delta.Changed {
		report.Unchanged++
		return nil
	}
	report.Updated++
	if err := r.notify(ctx, delta); err != nil {
		return fmt.Errorf("notify order %s: %w", rec.UpstreamID(), err)
	}
	return nil
}

func (r *Reconciler) notify(ctx context.Context, delta *orders.StatusDelta) error {
	_, err := r.notifier.Notify(ctx, OrderNotification(delta))
	return err
}

// OrderNotification describes an order delta to its owner. Exactly one
// notification is produced per changed order: a fulfilment change wins over a
// payment change.
func OrderNotification(delta *orders.StatusDelta) notifications.NotifyInput {
	order := delta.Order
	ref := order.ID.String()
	if order.DrGreenOrderID != nil {
		ref = *order.DrGreenOrderID
	}
	input := notifications.NotifyInput{
		UserID: order.UserID,
		Type:   enums.NotificationTypeOrderStatusChanged,
		Title:  "Order status updated",
		Link:   fmt.Sprintf("/dashboard/orders/%s", ref),
		Metadata: map[string]any{
			"orderId":         ref,
			"previousStatus":  delta.PreviousStatus,
			"status":          order.Status,
			"previousPayment": delta.PreviousPayment,
			"paymentStatus":   order.PaymentStatus,
		},
	}
	if delta.StatusChanged() {
		input.Message = fmt.Sprintf("Order %s is now %s.", ref, order.Status)
	} else {
		input.Type = enums.NotificationTypePaymentStatusChanged
		input.Title = "Payment status updated"
		input.Message = fmt.Sprintf("Payment for order %s is now %s.", ref, order.PaymentStatus)
	}
	return input
}
