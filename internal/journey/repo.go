package journey

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
)

// Repository persists append-only journey entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.JourneyLog) error
	List(ctx context.Context, filter ListFilter) ([]models.JourneyLog, error)
}

// ListFilter narrows admin journey log queries.
type ListFilter struct {
	UserID    *uuid.UUID
	ClientID  *uuid.UUID
	EventType enums.JourneyEvent
	Limit     int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a journey repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, entry *models.JourneyLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.JourneyLog, error) {
	query := r.db.WithContext(ctx).Model(&models.JourneyLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}

	var rows []models.JourneyLog
	if err := query.Order("created_at DESC, id DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
