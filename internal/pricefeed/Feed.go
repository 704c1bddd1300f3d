/*

This file contains the price feed itself: the ordered fallback chain over
the configured sources plus the cache that keeps the last good answer
available when every live source is down.

*/

package pricefeed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/logger"
)

// DefaultCacheTTL bounds how long a cached price counts as fresh.
const DefaultCacheTTL = 30 * time.Second

var ErrNoPriceAvailable = errors.New("no price available from any source")

// Feed resolves the asset price by walking its sources in order. The first
// source that answers wins; a fresh cache entry short-circuits the chain.
type Feed struct {
	sources []Source
	cache   *Cache
	logger  zerolog.Logger
}

// NewFeed creates a feed over the given sources, tried in slice order.
func NewFeed(cache *Cache, sources ...Source) (*Feed, error) {
	if len(sources) == 0 {
		return nil, ErrNoPriceSources
	}
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}
	return &Feed{
		sources: sources,
		cache:   cache,
		logger:  logger.GetForComponent("price_feed"),
	}, nil
}

// Current returns the asset price. A fresh cached value is served directly;
// otherwise the sources are tried in order and the first valid answer is
// cached and returned. When every source fails, the last known price is
// served even if stale, so a transient outage never zeroes downstream
// sizing. With no price ever observed, ErrNoPriceAvailable is returned.
func (f *Feed) Current(ctx context.Context) (float64, error) {
	if price, ok := f.cache.Fresh(); ok {
		return price, nil
	}

	for _, source := range f.sources {
		price, err := source.Price(ctx)
		if err != nil {
			f.logger.Debug().
				Err(err).
				Str("source", source.Name()).
				Msg("Price source failed, trying next")
			continue
		}
		f.cache.Set(price)
		return price, nil
	}

	if price, ok := f.cache.LastKnown(); ok {
		f.logger.Warn().
			Float64("price", price).
			Time("updatedAt", f.cache.UpdatedAt()).
			Msg("All price sources failed, serving last known price")
		return price, nil
	}
	return 0, ErrNoPriceAvailable
}

// Refresh forces a live read, bypassing the fresh-cache short circuit.
func (f *Feed) Refresh(ctx context.Context) (float64, error) {
	for _, source := range f.sources {
		price, err := source.Price(ctx)
		if err != nil {
			continue
		}
		f.cache.Set(price)
		return price, nil
	}
	if price, ok := f.cache.LastKnown(); ok {
		return price, nil
	}
	return 0, ErrNoPriceAvailable
}

// LastKnown exposes the cache's last observation for status reporting.
func (f *Feed) LastKnown() (float64, bool) {
	return f.cache.LastKnown()
}
