package wallets

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/pkg/db/models"
)

// Repository persists wallet-to-email mappings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByAddress(ctx context.Context, address string) (*models.WalletEmailMapping, error)
	Create(ctx context.Context, mapping *models.WalletEmailMapping) error
	UpdateEmail(ctx context.Context, address, email string) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a wallets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByAddress(ctx context.Context, address string) (*models.WalletEmailMapping, error) {
	var mapping models.WalletEmailMapping
	if err := r.db.WithContext(ctx).First(&mapping, "wallet_address = ?", address).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *repositoryImpl) Create(ctx context.Context, mapping *models.WalletEmailMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

func (r *repositoryImpl) UpdateEmail(ctx context.Context, address, email string) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletEmailMapping{}).
		Where("wallet_address = ?", address).
		Update("email", email).Error
}
