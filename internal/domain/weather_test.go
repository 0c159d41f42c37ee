package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// --- mock weather source ---

type mockSource struct {
	obs   WeatherObservation
	err   error
	calls int
}

func (m *mockSource) CurrentObservation(_ context.Context) (WeatherObservation, error) {
	m.calls++
	return m.obs, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestObserveWithFallback_Live(t *testing.T) {
	live := WeatherObservation{Temperature: 18, WindSpeed: 3, Humidity: 60, CloudCover: 10, IsDaytime: true, Source: SourceLive}
	src := &mockSource{obs: live}

	got := ObserveWithFallback(context.Background(), src, FallbackObservation(), discardLogger())

	assert.Equal(t, live, got)
	assert.Equal(t, 1, src.calls)
}

func TestObserveWithFallback_SourceError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	src := &mockSource{err: errors.New("connection refused")}

	got := ObserveWithFallback(context.Background(), src, FallbackObservation(), discardLogger())

	assert.Equal(t, 12.0, got.Temperature)
	assert.Equal(t, 5.0, got.WindSpeed)
	assert.Equal(t, 75.0, got.Humidity)
	assert.Equal(t, 50.0, got.CloudCover)
	assert.True(t, got.IsDaytime)
	assert.Equal(t, 3, got.WeatherCode)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, now, got.ObservedAt)
}

func TestObserveWithFallback_NilSource(t *testing.T) {
	fallback := WeatherObservation{Temperature: 20, WindSpeed: 1, Station: "custom"}

	got := ObserveWithFallback(context.Background(), nil, fallback, discardLogger())

	assert.Equal(t, 20.0, got.Temperature)
	assert.Equal(t, "custom", got.Station)
	assert.Equal(t, SourceFallback, got.Source)
}
