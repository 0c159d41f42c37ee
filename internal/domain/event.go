package domain

import (
	"context"
	"time"
)

// Observation sources.
const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceStale    = "stale"
	SourceFallback = "fallback"
	SourceKafka    = "kafka"
	SourceRequest  = "request"
)

// WeatherObservation holds the conditions the comfort model consumes.
type WeatherObservation struct {
	Station     string    `json:"station,omitempty"`
	Temperature float64   `json:"temperature"` // °C
	WindSpeed   float64   `json:"wind_speed"`  // m/s at 10 m
	Humidity    float64   `json:"humidity"`    // relative, %
	CloudCover  float64   `json:"cloud_cover"` // %
	IsDaytime   bool      `json:"is_day"`
	WeatherCode int       `json:"weather_code"` // WMO weather interpretation code
	ObservedAt  time.Time `json:"observed_at"`
	Source      string    `json:"source,omitempty"`
}

// Comfort runs ComputeComfort over the observation.
func (o WeatherObservation) Comfort() ComfortResult {
	return ComputeComfort(o.Temperature, o.WindSpeed, o.Humidity, o.CloudCover, o.IsDaytime)
}

// IsRaining reports whether the WMO code describes precipitation.
// Codes above 50 cover drizzle, rain, snow and thunderstorms.
func (o WeatherObservation) IsRaining() bool {
	return o.WeatherCode > 50
}

// FallbackObservation is substituted when live weather is unavailable.
func FallbackObservation() WeatherObservation {
	return WeatherObservation{
		Temperature: 12,
		WindSpeed:   5,
		Humidity:    75,
		CloudCover:  50,
		IsDaytime:   true,
		WeatherCode: 3,
	}
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ComfortReport is an observation paired with its comfort estimate, as
// published to the sink topic and kept in history.
type ComfortReport struct {
	ID          string             `json:"id"`
	Station     string             `json:"station,omitempty"`
	Observation WeatherObservation `json:"observation"`
	Comfort     ComfortResult      `json:"comfort"`
	ProcessedAt time.Time          `json:"processed_at"`
}
