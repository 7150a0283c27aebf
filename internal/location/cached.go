package location

import (
	"context"
	"fmt"
	"time"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/domain"
)

// Geocoded positions rarely move; weather does.
const (
	geocodeTTL = 7 * 24 * time.Hour
	weatherTTL = time.Hour
)

// CachedContext wraps a LocationContext with the shared cache. Cache
// failures fall through to the live API per the cache contract.
type CachedContext struct {
	inner domain.LocationContext
	cache *cache.Service
}

// NewCachedContext caches geocode and weather lookups around inner.
func NewCachedContext(inner domain.LocationContext, cacheService *cache.Service) *CachedContext {
	return &CachedContext{inner: inner, cache: cacheService}
}

func (c *CachedContext) Geocode(ctx context.Context, address string) (*domain.LocationInfo, error) {
	key := cache.GeocodePrefix + address

	var cached domain.LocationInfo
	if c.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	info, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, info, geocodeTTL)
	return info, nil
}

func (c *CachedContext) Weather(ctx context.Context, lat, lng float64) (*domain.WeatherReport, error) {
	key := fmt.Sprintf("%s%.4f,%.4f", cache.WeatherPrefix, lat, lng)

	var cached domain.WeatherReport
	if c.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	report, err := c.inner.Weather(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, report, weatherTTL)
	return report, nil
}
