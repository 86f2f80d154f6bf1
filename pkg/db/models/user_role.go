package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/enums"
)

// UserRole grants a role to an identity-provider user.
type UserRole struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_roles_user_role_key"`
	Role      enums.Role `gorm:"column:role;not null;uniqueIndex:user_roles_user_role_key"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (u *UserRole) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
