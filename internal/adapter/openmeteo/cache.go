package openmeteo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// CachedSource wraps a WeatherSource with a time-to-live cache. When the inner
// source fails, the last good observation is served as stale.
type CachedSource struct {
	inner   domain.WeatherSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	last      domain.WeatherObservation
	fetchedAt time.Time
	hasValue  bool
}

// NewCachedSource creates a cache decorator around a weather source.
func NewCachedSource(inner domain.WeatherSource, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:   inner,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentObservation returns the cached observation while it is fresh,
// otherwise refreshes it from the inner source.
func (c *CachedSource) CurrentObservation(ctx context.Context) (domain.WeatherObservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasValue && c.clock.Since(c.fetchedAt) <= c.ttl {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		obs := c.last
		obs.Source = domain.SourceCache
		return obs, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	obs, err := c.inner.CurrentObservation(ctx)
	if err != nil {
		if !c.hasValue {
			return domain.WeatherObservation{}, err
		}
		c.metrics.WeatherCache.WithLabelValues("stale").Inc()
		c.logger.Warn("weather refresh failed, serving stale observation",
			"age", c.clock.Since(c.fetchedAt),
			"error", err,
		)
		stale := c.last
		stale.Source = domain.SourceStale
		return stale, nil
	}

	c.last = obs
	c.fetchedAt = c.clock.Now()
	c.hasValue = true
	return obs, nil
}
