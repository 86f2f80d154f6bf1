package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/enums"
	"github.com/angelmondragon/greengate/pkg/types"
)

// CreateInput describes a locally completed checkout before it is submitted upstream.
type CreateInput struct {
	ClientID        uuid.UUID
	UserID          uuid.UUID
	Items           types.OrderItems
	Currency        string
	ShippingAddress *types.ShippingAddress
}

// SyncedInput carries the upstream acknowledgement of a created order.
type SyncedInput struct {
	Record drgreen.OrderRecord
	Raw    []byte
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	ClientID   *uuid.UUID
	SyncStatus enums.SyncStatus
	Status     enums.OrderStatus
	Limit      int
}

// StatusDelta reports how an upstream snapshot changed a local order.
type StatusDelta struct {
	Order           *models.Order
	Changed         bool
	Skipped         bool
	PreviousStatus  enums.OrderStatus
	PreviousPayment enums.PaymentStatus
}

// StatusChanged reports whether the fulfilment status moved.
func (d StatusDelta) StatusChanged() bool {
	return d.Order != nil && d.PreviousStatus != d.Order.Status
}

// PaymentChanged reports whether the payment status moved.
func (d StatusDelta) PaymentChanged() bool {
	return d.Order != nil && d.PreviousPayment != d.Order.PaymentStatus
}
