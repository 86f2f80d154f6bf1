package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
)

// Repository defines persistence operations for mirrored orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByDrGreenID(ctx context.Context, drgreenOrderID string) (*models.Order, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// UpdateFromSyncStatus applies updates only while the row is still in from.
	UpdateFromSyncStatus(ctx context.Context, id uuid.UUID, from enums.SyncStatus, updates map[string]any) (int64, error)
}
