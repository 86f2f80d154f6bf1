package cart

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/greengate/pkg/db/models"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/types"
)

// Service mirrors cart mutations that succeeded upstream.
type Service interface {
	Put(ctx context.Context, client *models.Client, item types.OrderItem) (*models.CartItem, error)
	Remove(ctx context.Context, clientID uuid.UUID, strainID string) error
	Empty(ctx context.Context, clientID uuid.UUID) (int64, error)
	Items(ctx context.Context, clientID uuid.UUID) (types.OrderItems, error)
}

type service struct {
	repo Repository
}

// NewService wires the cart mirror service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	return &service{repo: repo}, nil
}

// Put sets the quantity of a strain in the client's cart.
func (s *service) Put(ctx context.Context, client *models.Client, item types.OrderItem) (*models.CartItem, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client required")
	}
	strainID := strings.TrimSpace(item.StrainID)
	if strainID == "" || item.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "strain id and positive quantity required")
	}
	row := &models.CartItem{
		ClientID:   client.ID,
		UserID:     client.UserID,
		StrainID:   strainID,
		StrainName: strings.TrimSpace(item.StrainName),
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice.Round(2),
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cart item")
	}
	return row, nil
}

func (s *service) Remove(ctx context.Context, clientID uuid.UUID, strainID string) error {
	if _, err := s.repo.Delete(ctx, clientID, strings.TrimSpace(strainID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return nil
}

func (s *service) Empty(ctx context.Context, clientID uuid.UUID) (int64, error) {
	removed, err := s.repo.DeleteAll(ctx, clientID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "empty cart")
	}
	return removed, nil
}

// Items returns the mirrored cart as order items, ready for checkout.
func (s *service) Items(ctx context.Context, clientID uuid.UUID) (types.OrderItems, error) {
	rows, err := s.repo.List(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	items := make(types.OrderItems, 0, len(rows))
	for _, row := range rows {
		price := row.UnitPrice
		if price.IsNegative() {
			price = decimal.Zero
		}
		items = append(items, types.OrderItem{
			StrainID:   row.StrainID,
			StrainName: row.StrainName,
			Quantity:   row.Quantity,
			UnitPrice:  price,
		})
	}
	return items, nil
}
