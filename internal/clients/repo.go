package clients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
)

// Repository exposes persistence helpers for mirrored clients.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, client *models.Client) error
	Save(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error)
	FindByDrGreenID(ctx context.Context, drgreenClientID string) (*models.Client, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListNeedingReview(ctx context.Context, limit int) ([]models.Client, error)
	ListSyncable(ctx context.Context, limit int) ([]models.Client, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a clients repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, client *models.Client) error {
	// is_active has a database default, so an explicit false must be selected.
	return r.db.WithContext(ctx).Select("*").Create(client).Error
}

func (r *repositoryImpl) Save(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repositoryImpl) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repositoryImpl) FindByDrGreenID(ctx context.Context, drgreenClientID string) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "drgreen_client_id = ?", drgreenClientID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) ListNeedingReview(ctx context.Context, limit int) ([]models.Client, error) {
	var rows []models.Client
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND drgreen_client_id IS NOT NULL", true).
		Where("(is_kyc_verified = ? OR admin_approval <> ?)", false, enums.ApprovalStatusVerified).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListSyncable(ctx context.Context, limit int) ([]models.Client, error) {
	var rows []models.Client
	// never-synced clients first, then the stalest
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND drgreen_client_id IS NOT NULL", true).
		Order("last_synced_at IS NOT NULL, last_synced_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

