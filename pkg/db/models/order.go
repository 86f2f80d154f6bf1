package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/enums"
	"github.com/angelmondragon/greengate/pkg/types"
)

// Order is the local mirror of an upstream order. DrGreenOrderID stays nil
// until the upstream create call succeeds.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ClientID        uuid.UUID              `gorm:"column:client_id;type:uuid;not null"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	DrGreenOrderID  *string                `gorm:"column:drgreen_order_id;uniqueIndex:orders_drgreen_order_id_key"`
	Status          enums.OrderStatus      `gorm:"column:status;not null;default:'PENDING'"`
	PaymentStatus   enums.PaymentStatus    `gorm:"column:payment_status;not null;default:'PENDING'"`
	SyncStatus      enums.SyncStatus       `gorm:"column:sync_status;not null;default:'pending'"`
	SyncError       *string                `gorm:"column:sync_error"`
	Items           types.OrderItems       `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalAmount     decimal.Decimal        `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency        string                 `gorm:"column:currency;not null;default:'EUR'"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	UpstreamPayload datatypes.JSON         `gorm:"column:upstream_payload;type:jsonb"`
	SyncedAt        *time.Time             `gorm:"column:synced_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
