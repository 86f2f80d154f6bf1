package types

import "github.com/shopspring/decimal"

// OrderItem is one strain line on a mirrored order.
type OrderItem struct {
	StrainID   string          `json:"strainId" validate:"required"`
	StrainName string          `json:"strainName,omitempty"`
	Quantity   int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// OrderItems is stored as a JSON array on orders.items.
type OrderItems []OrderItem

// Total sums quantity * unit price across all lines.
func (items OrderItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}
