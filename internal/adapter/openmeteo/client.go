package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// currentFields are the Open-Meteo "current" variables the comfort model needs.
const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,cloud_cover,is_day,weather_code"

// timeLayout is Open-Meteo's ISO 8601 format without seconds or zone (GMT by default).
const timeLayout = "2006-01-02T15:04"

// Client implements domain.WeatherSource using the Open-Meteo forecast API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	latitude   float64
	longitude  float64
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client for a fixed location.
func NewClient(baseURL string, latitude, longitude float64, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		latitude:  latitude,
		longitude: longitude,
		clock:     clockwork.NewRealClock(),
		metrics:   metrics,
		logger:    logger,
	}
}

// CurrentObservation fetches current conditions. Wind speed is requested in m/s.
func (c *Client) CurrentObservation(ctx context.Context) (domain.WeatherObservation, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(c.latitude, 'f', 4, 64)},
		"longitude":       {strconv.FormatFloat(c.longitude, 'f', 4, 64)},
		"current":         {currentFields},
		"wind_speed_unit": {"ms"},
	}

	start := c.clock.Now()
	obs, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherObservation{}, err
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()

	c.logger.Debug("weather observation fetched",
		"temperature", obs.Temperature,
		"wind_speed", obs.WindSpeed,
		"observed_at", obs.ObservedAt,
	)
	return obs, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.WeatherObservation{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var forecast response
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: %w", err)
	}
	if forecast.Current == nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: missing current block")
	}

	return c.toObservation(*forecast.Current), nil
}

func (c *Client) toObservation(cur current) domain.WeatherObservation {
	observedAt := c.clock.Now().UTC()
	if t, err := time.Parse(timeLayout, cur.Time); err == nil {
		observedAt = t
	}

	return domain.WeatherObservation{
		Station:     fmt.Sprintf("open-meteo:%.4f,%.4f", c.latitude, c.longitude),
		Temperature: cur.Temperature,
		WindSpeed:   cur.WindSpeed,
		Humidity:    cur.Humidity,
		CloudCover:  cur.CloudCover,
		IsDaytime:   cur.IsDay != 0,
		WeatherCode: cur.WeatherCode,
		ObservedAt:  observedAt,
		Source:      domain.SourceLive,
	}
}

// Open-Meteo API response types.

type response struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Current   *current `json:"current"`
}

type current struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
	Humidity    float64 `json:"relative_humidity_2m"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	CloudCover  float64 `json:"cloud_cover"`
	IsDay       int     `json:"is_day"`
	WeatherCode int     `json:"weather_code"`
}
