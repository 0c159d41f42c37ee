package domain

import (
	"context"
	"log/slog"
)

// WeatherSource supplies current conditions for the configured location.
type WeatherSource interface {
	CurrentObservation(ctx context.Context) (WeatherObservation, error)
}

// ObserveWithFallback reads the current observation from source. If source is
// nil or fails, the fallback observation is returned instead, stamped with the
// current time and Source set to "fallback".
func ObserveWithFallback(ctx context.Context, source WeatherSource, fallback WeatherObservation, logger *slog.Logger) WeatherObservation {
	if source != nil {
		obs, err := source.CurrentObservation(ctx)
		if err == nil {
			return obs
		}
		logger.Warn("weather fetch failed, using fallback observation", "error", err)
	}

	fallback.ObservedAt = clock.Now().UTC()
	fallback.Source = SourceFallback
	return fallback
}
