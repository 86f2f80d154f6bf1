package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalletEmailMapping links a lower-cased wallet address to a user's email.
type WalletEmailMapping struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	WalletAddress string    `gorm:"column:wallet_address;not null;uniqueIndex:wallet_email_mappings_wallet_address_key"`
	Email         string    `gorm:"column:email;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WalletEmailMapping) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
