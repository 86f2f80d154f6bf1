package strains

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/greengate/pkg/db/models"
)

// Repository persists the per-country strain cache.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertMany(ctx context.Context, rows []models.Strain) error
	DeactivateMissing(ctx context.Context, countryCode string, keep []string, at time.Time) (int64, error)
	ListActive(ctx context.Context, countryCode string, limit, offset int) ([]models.Strain, error)
	FindByUpstreamID(ctx context.Context, countryCode, drgreenStrainID string) (*models.Strain, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a strains repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

var upsertColumns = []string{
	"name", "description", "strain_type", "thc_content", "cbd_content", "cbg_content",
	"retail_price", "stock", "image_url", "effects", "terpenes", "is_active",
	"upstream_payload", "synced_at", "updated_at",
}

func (r *repositoryImpl) UpsertMany(ctx context.Context, rows []models.Strain) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "drgreen_strain_id"}, {Name: "country_code"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		CreateInBatches(rows, 100).Error
}

// DeactivateMissing never clears a country wholesale; an empty keep list is a no-op.
func (r *repositoryImpl) DeactivateMissing(ctx context.Context, countryCode string, keep []string, at time.Time) (int64, error) {
	if len(keep) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Strain{}).
		Where("country_code = ? AND is_active = ? AND drgreen_strain_id NOT IN ?", countryCode, true, keep).
		Updates(map[string]any{"is_active": false, "synced_at": at})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListActive(ctx context.Context, countryCode string, limit, offset int) ([]models.Strain, error) {
	var rows []models.Strain
	err := r.db.WithContext(ctx).
		Where("country_code = ? AND is_active = ?", countryCode, true).
		Order("name ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindByUpstreamID(ctx context.Context, countryCode, drgreenStrainID string) (*models.Strain, error) {
	var row models.Strain
	if err := r.db.WithContext(ctx).
		First(&row, "country_code = ? AND drgreen_strain_id = ?", countryCode, drgreenStrainID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
