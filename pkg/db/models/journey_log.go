package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/enums"
)

// JourneyLog is an append-only audit entry.
type JourneyLog struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID         `gorm:"column:user_id;type:uuid"`
	ClientID  *uuid.UUID         `gorm:"column:client_id;type:uuid"`
	EventType enums.JourneyEvent `gorm:"column:event_type;not null"`
	Action    string             `gorm:"column:action;not null;default:''"`
	Metadata  datatypes.JSON     `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (j *JourneyLog) BeforeCreate(*gorm.DB) error {
	ensureID(&j.ID)
	return nil
}
