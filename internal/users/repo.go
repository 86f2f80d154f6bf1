package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

// Repository exposes role grants for identity-provider users.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// HasRole reports whether the user holds role.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user role")
	}
	return count > 0, nil
}

// IsAdmin is HasRole for the admin role.
func (r *Repository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.HasRole(ctx, userID, enums.RoleAdmin)
}

// Roles lists every role granted to the user.
func (r *Repository) Roles(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	var rows []models.UserRole
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("role ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user roles")
	}
	roles := make([]enums.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}

// Grant adds role to the user. Granting an existing role is a no-op.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	row := &models.UserRole{UserID: userID, Role: role}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant user role")
	}
	return nil
}
