package proxy

import (
	"context"

	"github.com/angelmondragon/greengate/pkg/types"
)

type cartItemParams struct {
	StrainID   string `json:"strainId" validate:"required"`
	StrainName string `json:"strainName"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type addToCartParams struct {
	ClientID string           `json:"clientId" validate:"required"`
	Items    []cartItemParams `json:"items" validate:"required,min=1,dive"`
}

// addToCart forwards the cart lines and mirrors them into cart_items.
func (d *Dispatcher) addToCart(ctx context.Context, c *call) (any, error) {
	var in addToCartParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}

	lines := make([]map[string]any, 0, len(in.Items))
	for _, item := range in.Items {
		lines = append(lines, map[string]any{"strainId": item.StrainID, "quantity": item.Quantity})
	}
	resp, err := d.send(ctx, c, map[string]any{"clientId": in.ClientID, "items": lines})
	if err != nil {
		return nil, err
	}

	local, err := d.mirroredClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		for _, item := range in.Items {
			if _, err := d.cart.Put(ctx, local, d.priced(ctx, local.CountryCode, item)); err != nil {
				return nil, err
			}
		}
	}
	return resp.Payload().Value(), nil
}

type removeFromCartParams struct {
	ClientID string `json:"clientId" validate:"required"`
	StrainID string `json:"strainId" validate:"required"`
}

func (d *Dispatcher) removeFromCart(ctx context.Context, c *call) (any, error) {
	var in removeFromCartParams
	if err := c.Params.Decode(&in); err != nil {
		return nil, err
	}
	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	local, err := d.mirroredClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		if err := d.cart.Remove(ctx, local.ID, in.StrainID); err != nil {
			return nil, err
		}
	}
	return resp.Payload().Value(), nil
}

func (d *Dispatcher) emptyCart(ctx context.Context, c *call) (any, error) {
	resp, err := d.send(ctx, c, nil)
	if err != nil {
		return nil, err
	}
	local, err := d.mirroredClient(ctx, c.Params.String("clientId"))
	if err != nil {
		return nil, err
	}
	if local != nil {
		if _, err := d.cart.Empty(ctx, local.ID); err != nil {
			return nil, err
		}
	}
	return resp.Payload().Value(), nil
}

// priced fills name and unit price from the local strain cache when known.
func (d *Dispatcher) priced(ctx context.Context, country string, item cartItemParams) types.OrderItem {
	line := types.OrderItem{
		StrainID:   item.StrainID,
		StrainName: item.StrainName,
		Quantity:   item.Quantity,
	}
	if country == "" {
		country = d.gate.DefaultCountry()
	}
	if strain, err := d.strains.Get(ctx, country, item.StrainID); err == nil {
		line.UnitPrice = strain.RetailPrice
		if line.StrainName == "" {
			line.StrainName = strain.Name
		}
	}
	return line
}
