package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/greengate/pkg/db/models"
)

// Repository persists the local cart mirror.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, clientID uuid.UUID, strainID string) (int64, error)
	DeleteAll(ctx context.Context, clientID uuid.UUID) (int64, error)
	List(ctx context.Context, clientID uuid.UUID) ([]models.CartItem, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "strain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"strain_name", "quantity", "unit_price", "updated_at"}),
		}).
		Create(item).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, clientID uuid.UUID, strainID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("client_id = ? AND strain_id = ?", clientID, strainID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteAll(ctx context.Context, clientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) List(ctx context.Context, clientID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC, strain_id ASC").
		Find(&rows).Error
	return rows, err
}
