package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Strain caches one upstream catalog entry for a country.
type Strain struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DrGreenStrainID string          `gorm:"column:drgreen_strain_id;not null;uniqueIndex:strains_upstream_country_key"`
	CountryCode     string          `gorm:"column:country_code;not null;uniqueIndex:strains_upstream_country_key"`
	Name            string          `gorm:"column:name;not null"`
	Description     *string         `gorm:"column:description"`
	StrainType      *string         `gorm:"column:strain_type"`
	THCContent      *float64        `gorm:"column:thc_content"`
	CBDContent      *float64        `gorm:"column:cbd_content"`
	CBGContent      *float64        `gorm:"column:cbg_content"`
	RetailPrice     decimal.Decimal `gorm:"column:retail_price;type:numeric(12,2);not null"`
	Stock           int             `gorm:"column:stock;not null;default:0"`
	ImageURL        *string         `gorm:"column:image_url"`
	// text[] columns; declared as text so SQLite test schemas accept them.
	Effects         pq.StringArray  `gorm:"column:effects;type:text"`
	Terpenes        pq.StringArray  `gorm:"column:terpenes;type:text"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	UpstreamPayload datatypes.JSON  `gorm:"column:upstream_payload;type:jsonb"`
	SyncedAt        *time.Time      `gorm:"column:synced_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Strain) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
