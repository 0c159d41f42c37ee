package openmeteo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// --- mock for cache tests ---

type countingSource struct {
	calls int
	obs   domain.WeatherObservation
	err   error
}

func (m *countingSource) CurrentObservation(_ context.Context) (domain.WeatherObservation, error) {
	m.calls++
	return m.obs, m.err
}

func newTestCache(inner domain.WeatherSource, ttl time.Duration) (*CachedSource, *clockwork.FakeClock, *observability.Metrics) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	c := NewCachedSource(inner, ttl, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.clock = clock
	return c, clock, metrics
}

// --- CachedSource tests ---

func TestCachedSource_Hit(t *testing.T) {
	inner := &countingSource{obs: domain.WeatherObservation{Temperature: 14, Source: domain.SourceLive}}
	cached, clock, metrics := newTestCache(inner, 5*time.Minute)

	first, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLive, first.Source)

	clock.Advance(4 * time.Minute)

	second, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14.0, second.Temperature)
	assert.Equal(t, domain.SourceCache, second.Source)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("miss")))
}

func TestCachedSource_Expiry(t *testing.T) {
	inner := &countingSource{obs: domain.WeatherObservation{Temperature: 14}}
	cached, clock, _ := newTestCache(inner, 5*time.Minute)

	_, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	inner.obs.Temperature = 16

	got, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16.0, got.Temperature)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_StaleOnError(t *testing.T) {
	inner := &countingSource{obs: domain.WeatherObservation{Temperature: 9, Source: domain.SourceLive}}
	cached, clock, metrics := newTestCache(inner, time.Minute)

	_, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	inner.err = errors.New("upstream down")

	got, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.Temperature)
	assert.Equal(t, domain.SourceStale, got.Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("stale")))
}

func TestCachedSource_ErrorWithoutValue(t *testing.T) {
	inner := &countingSource{err: errors.New("upstream down")}
	cached, _, _ := newTestCache(inner, time.Minute)

	_, err := cached.CurrentObservation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestCachedSource_ErrorDoesNotReplaceValue(t *testing.T) {
	inner := &countingSource{obs: domain.WeatherObservation{Temperature: 9}}
	cached, clock, _ := newTestCache(inner, time.Minute)

	_, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	inner.err = errors.New("upstream down")
	_, err = cached.CurrentObservation(context.Background())
	require.NoError(t, err)

	inner.err = nil
	inner.obs.Temperature = 11
	got, err := cached.CurrentObservation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11.0, got.Temperature, "a failed refresh must not reset the fetch time")
}
