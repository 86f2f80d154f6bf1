package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/pagination"
)

const (
	defaultCurrency  = "EUR"
	maxSyncErrorSize = 500
)

// Service owns the local order mirror and its sync_status state machine.
type Service interface {
	CreatePending(ctx context.Context, input CreateInput) (*models.Order, error)
	MarkSynced(ctx context.Context, orderID uuid.UUID, input SyncedInput) (*models.Order, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	Flag(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	Reset(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	TransitionSync(ctx context.Context, orderID uuid.UUID, to enums.SyncStatus, reason string) (*models.Order, error)
	Resolve(ctx context.Context, ref string) (*models.Order, error)
	GetByDrGreenID(ctx context.Context, drgreenOrderID string) (*models.Order, error)
	OwnerOf(ctx context.Context, ref string) (uuid.UUID, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	ApplyUpstream(ctx context.Context, order *models.Order, input SyncedInput, override bool) (*StatusDelta, error)
	InsertFromUpstream(ctx context.Context, client *models.Client, input SyncedInput) (*models.Order, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the order mirror service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) CreatePending(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.ClientID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client and user required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.StrainID) == "" || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order item").
				WithDetails(map[string]any{"index": i})
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	order := &models.Order{
		ClientID:        input.ClientID,
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		SyncStatus:      enums.SyncStatusPending,
		Items:           input.Items,
		TotalAmount:     input.Items.Total(),
		Currency:        currency,
		ShippingAddress: input.ShippingAddress,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) MarkSynced(ctx context.Context, orderID uuid.UUID, input SyncedInput) (*models.Order, error) {
	upstreamID := input.Record.UpstreamID()
	if upstreamID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upstream order id missing")
	}
	now := s.now().UTC()
	updates := map[string]any{
		"drgreen_order_id": upstreamID,
		"sync_error":       nil,
		"synced_at":        now,
	}
	if status, err := enums.ParseOrderStatus(input.Record.EffectiveStatus()); err == nil {
		updates["status"] = status
	}
	if payment, err := enums.ParsePaymentStatus(input.Record.PaymentStatus); err == nil {
		updates["payment_status"] = payment
	}
	if len(input.Raw) > 0 {
		updates["upstream_payload"] = datatypes.JSON(input.Raw)
	}
	order, err := s.transition(ctx, orderID, enums.SyncStatusSynced, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "upstream order already mirrored")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	return s.TransitionSync(ctx, orderID, enums.SyncStatusFailed, reason)
}

func (s *service) Flag(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	return s.TransitionSync(ctx, orderID, enums.SyncStatusManualReview, reason)
}

// Reset returns a failed or flagged order to pending so it can be resubmitted.
func (s *service) Reset(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.TransitionSync(ctx, orderID, enums.SyncStatusPending, "")
}

func (s *service) TransitionSync(ctx context.Context, orderID uuid.UUID, to enums.SyncStatus, reason string) (*models.Order, error) {
	updates := map[string]any{}
	switch to {
	case enums.SyncStatusFailed, enums.SyncStatusManualReview:
		if msg := truncate(strings.TrimSpace(reason), maxSyncErrorSize); msg != "" {
			updates["sync_error"] = msg
		}
	case enums.SyncStatusPending:
		updates["sync_error"] = nil
	case enums.SyncStatusSynced:
		// synced carries the upstream id; only MarkSynced may enter it.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "synced requires an upstream acknowledgement")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sync status")
	}
	return s.transition(ctx, orderID, to, updates)
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, to enums.SyncStatus, updates map[string]any) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err)
	}
	from := order.SyncStatus
	if from == to {
		return order, nil
	}
	if !from.CanTransitionTo(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "sync status transition not allowed").
			WithDetails(map[string]any{"from": from, "to": to})
	}

	updates["sync_status"] = to
	affected, err := s.repo.UpdateFromSyncStatus(ctx, orderID, from, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order sync status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order sync status changed concurrently").
			WithDetails(map[string]any{"from": from, "to": to})
	}
	return s.reload(ctx, orderID)
}

// Resolve accepts either the local order id or the upstream order id.
func (s *service) Resolve(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		order, err := s.repo.FindByID(ctx, id)
		if err == nil {
			return order, nil
		}
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
	}
	return s.GetByDrGreenID(ctx, ref)
}

func (s *service) GetByDrGreenID(ctx context.Context, drgreenOrderID string) (*models.Order, error) {
	order, err := s.repo.FindByDrGreenID(ctx, strings.TrimSpace(drgreenOrderID))
	if err != nil {
		return nil, lookupError(err)
	}
	return order, nil
}

func (s *service) OwnerOf(ctx context.Context, ref string) (uuid.UUID, error) {
	order, err := s.Resolve(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return order.UserID, nil
}

func (s *service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error) {
	rows, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return rows, nil
}

// ApplyUpstream copies status fields from an upstream snapshot. Orders in a
// terminal status are left alone unless override is set.
func (s *service) ApplyUpstream(ctx context.Context, order *models.Order, input SyncedInput, override bool) (*StatusDelta, error) {
	delta := &StatusDelta{
		Order:           order,
		PreviousStatus:  order.Status,
		PreviousPayment: order.PaymentStatus,
	}
	if order.Status.IsTerminal() && !override {
		delta.Skipped = true
		return delta, nil
	}

	updates := map[string]any{}
	if status, err := enums.ParseOrderStatus(input.Record.EffectiveStatus()); err == nil && status != order.Status {
		updates["status"] = status
	}
	if payment, err := enums.ParsePaymentStatus(input.Record.PaymentStatus); err == nil && payment != order.PaymentStatus {
		updates["payment_status"] = payment
	}
	if len(updates) == 0 {
		return delta, nil
	}
	now := s.now().UTC()
	updates["synced_at"] = now
	if len(input.Raw) > 0 {
		updates["upstream_payload"] = datatypes.JSON(input.Raw)
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	if payment, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		order.PaymentStatus = payment
	}
	order.SyncedAt = &now
	delta.Changed = true
	return delta, nil
}

// InsertFromUpstream creates a local row for an upstream order that has no
// local counterpart.
func (s *service) InsertFromUpstream(ctx context.Context, client *models.Client, input SyncedInput) (*models.Order, error) {
	rec := input.Record
	upstreamID := rec.UpstreamID()
	if upstreamID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upstream order id missing")
	}
	status, err := enums.ParseOrderStatus(rec.EffectiveStatus())
	if err != nil {
		status = enums.OrderStatusPending
	}
	payment, err := enums.ParsePaymentStatus(rec.PaymentStatus)
	if err != nil {
		payment = enums.PaymentStatusPending
	}
	items := rec.Items()
	total := rec.TotalAmount
	if total.Equal(decimal.Zero) {
		total = items.Total()
	}
	currency := strings.ToUpper(strings.TrimSpace(rec.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	now := s.now().UTC()
	order := &models.Order{
		ClientID:        client.ID,
		UserID:          client.UserID,
		DrGreenOrderID:  &upstreamID,
		Status:          status,
		PaymentStatus:   payment,
		SyncStatus:      enums.SyncStatusSynced,
		Items:           items,
		TotalAmount:     total,
		Currency:        currency,
		ShippingAddress: client.ShippingAddress,
		SyncedAt:        &now,
	}
	if len(input.Raw) > 0 {
		order.UpstreamPayload = datatypes.JSON(input.Raw)
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "upstream order already mirrored")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert upstream order")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err)
	}
	return order, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return fmt.Sprintf("%s…", value[:limit])
}
