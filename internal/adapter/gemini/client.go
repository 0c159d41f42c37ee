// Package gemini implements domain.Advisor on top of the Gemini
// generateContent REST endpoint with JSON-constrained output.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// ErrEmptyResponse is returned when the model produced no candidate text.
var ErrEmptyResponse = errors.New("empty response from advisor")

const (
	kindRoutes  = "routes"
	kindDensity = "density"
)

// Client implements domain.Advisor.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an advisor client for the given model.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// SuggestRoutes asks the model for one leisure, one fast and one transit route.
func (c *Client) SuggestRoutes(ctx context.Context, req domain.RouteRequest) ([]domain.WalkRoute, error) {
	var routes []domain.WalkRoute
	if err := c.generate(ctx, kindRoutes, routesPrompt(req), routesSchema, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// EstimateDensity asks the model for the crowd density of each zone at a time.
func (c *Client) EstimateDensity(ctx context.Context, zones []string, at time.Time) ([]domain.ZoneDensity, error) {
	var densities []domain.ZoneDensity
	if err := c.generate(ctx, kindDensity, densityPrompt(zones, at), densitySchema, &densities); err != nil {
		return nil, err
	}
	return densities, nil
}

func (c *Client) generate(ctx context.Context, kind, prompt string, responseSchema schema, out any) error {
	start := c.clock.Now()
	err := c.doRequest(ctx, prompt, responseSchema, out)
	c.metrics.AdvisorAPIDuration.WithLabelValues(kind).Observe(c.clock.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrEmptyResponse):
		c.metrics.AdvisorRequests.WithLabelValues(kind, "empty").Inc()
	case err != nil:
		c.metrics.AdvisorRequests.WithLabelValues(kind, "error").Inc()
	default:
		c.metrics.AdvisorRequests.WithLabelValues(kind, "success").Inc()
	}
	if err != nil {
		return fmt.Errorf("%s advice: %w", kind, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, prompt string, responseSchema schema, out any) error {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("advisor API error: status %d: %s", resp.StatusCode, b)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	text := gen.text()
	if text == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode advice: %w", err)
	}
	return nil
}

func routesPrompt(req domain.RouteRequest) string {
	obs := req.Observation
	raining := "No"
	if obs.IsRaining() {
		raining = "Yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Act as an expert %s walking guide.\n", req.City)
	fmt.Fprintf(&b, "Generate 3 distinct routes from %q to %q in %s.\n", req.Start, req.End, req.City)
	fmt.Fprintf(&b, "Current Weather: Temperature: %g°C, Wind: %gm/s, Raining: %s.\n", obs.Temperature, obs.WindSpeed, raining)
	b.WriteString("\nThe 3 routes must correspond exactly to these types:\n")
	b.WriteString("1. LEISURE: Scenic, passes landmarks, lower stress.\n")
	b.WriteString("2. FAST: Direct, shortest path, main roads.\n")
	b.WriteString("3. TRANSPORT: A route that involves walking to a bus stop and taking transit (simulate the transit part).\n")
	b.WriteString("\nReturn strictly JSON data adhering to the schema.\n")
	return b.String()
}

func densityPrompt(zones []string, at time.Time) string {
	var b strings.Builder
	b.WriteString("Estimate the current crowd density (0-100) for these zones:\n")
	b.WriteString(strings.Join(zones, ", "))
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Current Time: %s %s.\n", at.Weekday(), at.Format("15:04"))
	b.WriteString("Consider typical footfall, nightlife, or work hours.\n\nReturn JSON.\n")
	return b.String()
}
