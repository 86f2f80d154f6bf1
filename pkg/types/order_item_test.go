package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrderItemsTotal(t *testing.T) {
	items := OrderItems{
		{StrainID: "s-1", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		{StrainID: "s-2", Quantity: 1, UnitPrice: decimal.RequireFromString("7.25")},
	}
	require.True(t, decimal.RequireFromString("32.25").Equal(items.Total()))
	require.True(t, OrderItems{}.Total().IsZero())
}

func TestOrderItemAcceptsNumericPrice(t *testing.T) {
	var item OrderItem
	require.NoError(t, json.Unmarshal([]byte(`{"strainId":"s-1","quantity":3,"unitPrice":9.99}`), &item))
	require.Equal(t, 3, item.Quantity)
	require.True(t, decimal.RequireFromString("9.99").Equal(item.UnitPrice))
}

func TestShippingAddressNormalizeAndValidate(t *testing.T) {
	blank := "  "
	addr := ShippingAddress{
		Address1:    " 1 Long Street ",
		Address2:    &blank,
		City:        "Cape Town",
		Country:     "South Africa",
		CountryCode: "zaf",
		PostalCode:  "8001",
	}.Normalize()

	require.Equal(t, "1 Long Street", addr.Address1)
	require.Equal(t, "ZAF", addr.CountryCode)
	require.Nil(t, addr.Address2)
	require.NoError(t, addr.Validate())

	addr.CountryCode = "ZA"
	require.Error(t, addr.Validate())
}
