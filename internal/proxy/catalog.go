package proxy

import (
	"context"
	"errors"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/metrics"
)

const defaultCatalogTake = 50

// getStrains serves the upstream catalog, falling back to the local strain
// cache when the upstream call fails.
func (d *Dispatcher) getStrains(ctx context.Context, c *call) (any, error) {
	data, err := d.forward(ctx, c)
	if err == nil {
		return data, nil
	}
	if !canFallback(ctx, err) {
		return nil, err
	}

	cached, cacheErr := d.strains.ListActive(ctx, c.Params.String("countryCode"), c.Params.Int("page", 1), c.Params.Int("take", defaultCatalogTake))
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	d.metrics.IncRequest(c.Action, metrics.OutcomeFallback)
	d.logg.Warn(d.logg.WithField(ctx, "cached", len(cached)), "serving strains from local cache")
	return cached, nil
}

func (d *Dispatcher) getStrain(ctx context.Context, c *call) (any, error) {
	data, err := d.forward(ctx, c)
	if err == nil {
		return data, nil
	}
	if !canFallback(ctx, err) {
		return nil, err
	}

	cached, cacheErr := d.strains.Get(ctx, c.Params.String("countryCode"), c.Params.String("strainId"))
	if cacheErr != nil {
		return nil, err
	}
	d.metrics.IncRequest(c.Action, metrics.OutcomeFallback)
	return cached, nil
}

// canFallback is true for upstream failures. Validation errors and a
// cancelled caller are returned as-is.
func canFallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	return pkgerrors.CodeOf(err) == pkgerrors.CodeUpstream
}
