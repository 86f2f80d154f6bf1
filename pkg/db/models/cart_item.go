package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem mirrors one line of the upstream cart for a client.
type CartItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ClientID   uuid.UUID       `gorm:"column:client_id;type:uuid;not null;uniqueIndex:cart_items_client_strain_key"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	StrainID   string          `gorm:"column:strain_id;not null;uniqueIndex:cart_items_client_strain_key"`
	StrainName string          `gorm:"column:strain_name;not null;default:''"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
