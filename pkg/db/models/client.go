package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/enums"
	"github.com/angelmondragon/greengate/pkg/types"
)

// Client mirrors a patient registration held by Dr. Green. Each local user
// owns at most one client; rows are deactivated, never deleted.
type Client struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:clients_user_id_key"`
	DrGreenClientID *string                `gorm:"column:drgreen_client_id;uniqueIndex:clients_drgreen_client_id_key"`
	Email           string                 `gorm:"column:email;not null"`
	CountryCode     string                 `gorm:"column:country_code;not null"`
	IsKYCVerified   bool                   `gorm:"column:is_kyc_verified;not null;default:false"`
	AdminApproval   enums.ApprovalStatus   `gorm:"column:admin_approval;not null;default:'PENDING'"`
	KYCLink         *string                `gorm:"column:kyc_link"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	IsActive        bool                   `gorm:"column:is_active;not null;default:true"`
	LastSyncedAt    *time.Time             `gorm:"column:last_synced_at"`
	UpstreamPayload datatypes.JSON         `gorm:"column:upstream_payload;type:jsonb"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsApproved reports whether the client may place orders.
func (c *Client) IsApproved() bool {
	return c.IsActive && c.IsKYCVerified && c.AdminApproval == enums.ApprovalStatusVerified
}
