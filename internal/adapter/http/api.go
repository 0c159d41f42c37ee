package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 200
	maxBodyBytes       = 1 << 20
)

// History stores and lists comfort reports.
type History interface {
	Save(ctx context.Context, report domain.ComfortReport) error
	Recent(ctx context.Context, limit int) ([]domain.ComfortReport, error)
}

// API serves the /v1 comfort endpoints.
type API struct {
	weather  domain.WeatherSource
	fallback domain.WeatherObservation
	advisor  domain.Advisor
	history  History
	city     string
	zones    []string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// APIOption configures optional API collaborators.
type APIOption func(*API)

// WithAdvisor enables generated routes and densities. Without it the static
// fallback data is served.
func WithAdvisor(a domain.Advisor) APIOption {
	return func(api *API) { api.advisor = a }
}

// WithHistory records served conditions and enables /v1/reports.
func WithHistory(h History) APIOption {
	return func(api *API) { api.history = h }
}

// WithCity sets the city and density zones used in advisor prompts.
func WithCity(city string, zones []string) APIOption {
	return func(api *API) {
		api.city = city
		api.zones = zones
	}
}

// NewAPI creates the /v1 handlers. A nil weather source always serves the
// fallback observation.
func NewAPI(weather domain.WeatherSource, fallback domain.WeatherObservation, metrics *observability.Metrics, logger *slog.Logger, opts ...APIOption) *API {
	api := &API{
		weather:  weather,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

type conditionsResponse struct {
	Observation domain.WeatherObservation `json:"observation"`
	Comfort     domain.ComfortResult      `json:"comfort"`
}

type walkRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type walkResponse struct {
	Observation domain.WeatherObservation `json:"observation"`
	Comfort     domain.ComfortResult      `json:"comfort"`
	Routes      []domain.WalkRoute        `json:"routes"`
	Density     []domain.ZoneDensity      `json:"density"`
}

func (a *API) handleComfort(w http.ResponseWriter, r *http.Request) {
	obs, err := parseComfortQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := obs.Comfort()
	a.metrics.ObserveComfort(result.Value, result.StressCategory)
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (a *API) handleConditions(w http.ResponseWriter, r *http.Request) {
	obs, ok := a.observe(w, r)
	if !ok {
		return
	}

	report := domain.BuildReport(obs)
	a.metrics.ObserveComfort(report.Comfort.Value, report.Comfort.StressCategory)

	if a.history != nil {
		if err := a.history.Save(r.Context(), report); err != nil {
			a.logger.Warn("save comfort report failed", "id", report.ID, "error", err)
		}
	}

	sharedobs.WriteJSON(w, http.StatusOK, conditionsResponse{
		Observation: report.Observation,
		Comfort:     report.Comfort,
	})
}

func (a *API) handleDensity(w http.ResponseWriter, r *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.PlanDensity(r.Context(), a.advisor, a.zones, a.logger))
}

func (a *API) handleWalks(w http.ResponseWriter, r *http.Request) {
	var req walkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Start = strings.TrimSpace(req.Start)
	req.End = strings.TrimSpace(req.End)
	if req.Start == "" || req.End == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	obs, ok := a.observe(w, r)
	if !ok {
		return
	}

	resp := walkResponse{Observation: obs, Comfort: obs.Comfort()}
	a.metrics.ObserveComfort(resp.Comfort.Value, resp.Comfort.StressCategory)

	// Planners fall back instead of failing; the only error is the request
	// going away, which cancels the sibling planner too.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		resp.Routes = domain.PlanRoutes(ctx, a.advisor, domain.RouteRequest{
			City:        a.city,
			Start:       req.Start,
			End:         req.End,
			Observation: obs,
		}, a.logger)
		return ctx.Err()
	})
	g.Go(func() error {
		resp.Density = domain.PlanDensity(ctx, a.advisor, a.zones, a.logger)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn("walk planning abandoned", "start", req.Start, "end", req.End, "error", err)
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, "report history is disabled")
		return
	}

	limit := defaultReportLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	reports, err := a.history.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("list comfort reports failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load report history")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, reports)
}

// observe fetches current conditions with fallback. It writes a 502 and
// returns false if the observation cannot be evaluated.
func (a *API) observe(w http.ResponseWriter, r *http.Request) (domain.WeatherObservation, bool) {
	obs := domain.ObserveWithFallback(r.Context(), a.weather, a.fallback, a.logger)
	if err := domain.ValidateObservation(obs); err != nil {
		a.logger.Error("weather observation rejected", "source", obs.Source, "error", err)
		writeError(w, http.StatusBadGateway, "weather observation is invalid: "+err.Error())
		return domain.WeatherObservation{}, false
	}
	return obs, true
}

func parseComfortQuery(r *http.Request) (domain.WeatherObservation, error) {
	q := r.URL.Query()
	obs := domain.WeatherObservation{
		IsDaytime:  true,
		ObservedAt: domain.Now().UTC(),
		Source:     domain.SourceRequest,
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"temperature", &obs.Temperature},
		{"wind_speed", &obs.WindSpeed},
		{"humidity", &obs.Humidity},
		{"cloud_cover", &obs.CloudCover},
	}
	for _, f := range fields {
		s := q.Get(f.name)
		if s == "" {
			return obs, fmt.Errorf("%s is required", f.name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return obs, fmt.Errorf("%s must be a number", f.name)
		}
		*f.dst = v
	}

	if s := q.Get("is_day"); s != "" {
		day, err := strconv.ParseBool(s)
		if err != nil {
			return obs, errors.New("is_day must be a boolean")
		}
		obs.IsDaytime = day
	}

	if err := domain.ValidateObservation(obs); err != nil {
		return obs, err
	}
	return obs, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
