package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrNegativeWind marks an observation whose wind speed would make the
	// comfort value NaN.
	ErrNegativeWind = errors.New("wind speed must not be negative")
	// ErrNonFinite marks an observation with a NaN or infinite input.
	ErrNonFinite = errors.New("observation values must be finite")
)

// rawObservation is the JSON shape published to the source topic.
type rawObservation struct {
	Station     string   `json:"station"`
	Temperature *float64 `json:"temperature"`
	WindSpeed   *float64 `json:"wind_speed"`
	Humidity    *float64 `json:"humidity"`
	CloudCover  *float64 `json:"cloud_cover"`
	IsDay       *bool    `json:"is_day"`
	WeatherCode int      `json:"weather_code"`
	ObservedAt  string   `json:"observed_at"`
}

// ParseRawObservation deserializes a RawEvent's value into a WeatherObservation.
// The observation time falls back to the message timestamp when the payload
// omits it. Temperature and wind speed are required.
func ParseRawObservation(raw RawEvent) (WeatherObservation, error) {
	var rec rawObservation
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return WeatherObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}
	if rec.Temperature == nil {
		return WeatherObservation{}, errors.New("parse raw observation: missing temperature")
	}
	if rec.WindSpeed == nil {
		return WeatherObservation{}, errors.New("parse raw observation: missing wind_speed")
	}

	observedAt := raw.Timestamp.UTC()
	if s := strings.TrimSpace(rec.ObservedAt); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return WeatherObservation{}, fmt.Errorf("parse raw observation: observed_at: %w", err)
		}
		observedAt = t.UTC()
	}

	obs := WeatherObservation{
		Station:     strings.TrimSpace(rec.Station),
		Temperature: *rec.Temperature,
		WindSpeed:   *rec.WindSpeed,
		Humidity:    valueOrZero(rec.Humidity),
		CloudCover:  valueOrZero(rec.CloudCover),
		IsDaytime:   rec.IsDay == nil || *rec.IsDay,
		WeatherCode: rec.WeatherCode,
		ObservedAt:  observedAt,
		Source:      SourceKafka,
	}
	return obs, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ValidateObservation rejects inputs that would produce a NaN or infinite
// comfort value. Out-of-range humidity and cloud cover are accepted.
func ValidateObservation(obs WeatherObservation) error {
	for _, v := range []float64{obs.Temperature, obs.WindSpeed, obs.Humidity, obs.CloudCover} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	if obs.WindSpeed < 0 {
		return ErrNegativeWind
	}
	return nil
}

// BuildReport computes the comfort estimate for an observation and stamps it
// with a deterministic ID and the processing time.
func BuildReport(obs WeatherObservation) ComfortReport {
	return ComfortReport{
		ID:          generateID(obs),
		Station:     obs.Station,
		Observation: obs,
		Comfort:     obs.Comfort(),
		ProcessedAt: clock.Now().UTC(),
	}
}

// generateID hashes the station, observation time and model inputs.
// Reprocessing the same observation produces the same ID.
func generateID(obs WeatherObservation) string {
	input := fmt.Sprintf("%s|%s|%g|%g|%g|%g|%t",
		obs.Station,
		obs.ObservedAt.UTC().Format(time.RFC3339),
		obs.Temperature, obs.WindSpeed, obs.Humidity, obs.CloudCover, obs.IsDaytime,
	)
	hash := sha256.Sum256([]byte(input))
	return "comfort-" + hex.EncodeToString(hash[:8])
}
