package domain

import (
	"context"
	"log/slog"
	"time"
)

// RouteType distinguishes the three suggested ways to make a trip.
type RouteType string

const (
	RouteLeisure   RouteType = "LEISURE"   // scenic, passes landmarks
	RouteFast      RouteType = "FAST"      // direct, main roads
	RouteTransport RouteType = "TRANSPORT" // walk to a stop, then transit
)

// Crowd levels reported on routes.
const (
	CrowdLow    = "Low"
	CrowdMedium = "Medium"
	CrowdHigh   = "High"
)

// RouteStep is a single turn-by-turn instruction.
type RouteStep struct {
	Instruction string `json:"instruction"`
	Distance    string `json:"distance,omitempty"`
}

// WalkRoute is a candidate route between two places.
type WalkRoute struct {
	Type        RouteType   `json:"type"`
	Title       string      `json:"title"`
	Duration    string      `json:"duration"`
	Distance    string      `json:"distance"`
	ScenicScore float64     `json:"scenicScore"` // 0-10
	CrowdLevel  string      `json:"crowdLevel"`
	Description string      `json:"description"`
	Steps       []RouteStep `json:"steps"`
	Landmarks   []string    `json:"landmarks"`
}

// ZoneDensity is the estimated crowding of a named city zone.
type ZoneDensity struct {
	Name            string  `json:"name"`
	DensityScore    float64 `json:"densityScore"`    // 0-100, 100 is very crowded
	PopulationTrend float64 `json:"populationTrend"` // previous hour comparison
	Time            string  `json:"time"`
}

// RouteRequest asks for routes between two places under current weather.
type RouteRequest struct {
	City        string
	Start       string
	End         string
	Observation WeatherObservation
}

// Advisor generates walking routes and crowd-density estimates.
type Advisor interface {
	// SuggestRoutes returns one route per RouteType for the request.
	SuggestRoutes(ctx context.Context, req RouteRequest) ([]WalkRoute, error)

	// EstimateDensity returns the crowding of each zone at the given time.
	EstimateDensity(ctx context.Context, zones []string, at time.Time) ([]ZoneDensity, error)
}

// PlanRoutes asks the advisor for routes and sanitizes the answer. A nil
// advisor, an error or an answer with no usable routes yields FallbackRoutes.
func PlanRoutes(ctx context.Context, advisor Advisor, req RouteRequest, logger *slog.Logger) []WalkRoute {
	if advisor == nil {
		return FallbackRoutes()
	}

	routes, err := advisor.SuggestRoutes(ctx, req)
	if err != nil {
		logger.Warn("route suggestion failed, using fallback routes",
			"start", req.Start,
			"end", req.End,
			"error", err,
		)
		return FallbackRoutes()
	}

	routes = sanitizeRoutes(routes)
	if len(routes) == 0 {
		logger.Warn("advisor returned no usable routes, using fallback routes",
			"start", req.Start,
			"end", req.End,
		)
		return FallbackRoutes()
	}
	return routes
}

// PlanDensity asks the advisor for zone densities. A nil advisor or an error
// yields FallbackDensity; an empty answer is returned as is.
func PlanDensity(ctx context.Context, advisor Advisor, zones []string, logger *slog.Logger) []ZoneDensity {
	if advisor == nil {
		return FallbackDensity()
	}

	densities, err := advisor.EstimateDensity(ctx, zones, clock.Now())
	if err != nil {
		logger.Warn("density estimate failed, using fallback densities", "error", err)
		return FallbackDensity()
	}

	out := make([]ZoneDensity, 0, len(densities))
	for _, d := range densities {
		if d.Name == "" {
			continue
		}
		d.DensityScore = clamp(d.DensityScore, 0, 100)
		out = append(out, d)
	}
	return out
}

// sanitizeRoutes drops routes of unknown type and clamps scores and levels
// into their documented ranges.
func sanitizeRoutes(routes []WalkRoute) []WalkRoute {
	out := make([]WalkRoute, 0, len(routes))
	for _, r := range routes {
		switch r.Type {
		case RouteLeisure, RouteFast, RouteTransport:
		default:
			continue
		}
		r.ScenicScore = clamp(r.ScenicScore, 0, 10)
		switch r.CrowdLevel {
		case CrowdLow, CrowdMedium, CrowdHigh:
		default:
			r.CrowdLevel = CrowdMedium
		}
		if r.Steps == nil {
			r.Steps = []RouteStep{}
		}
		if r.Landmarks == nil {
			r.Landmarks = []string{}
		}
		out = append(out, r)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FallbackRoutes is served when the advisor is disabled or unavailable.
func FallbackRoutes() []WalkRoute {
	return []WalkRoute{
		{
			Type:        RouteLeisure,
			Title:       "Laganside Scenic Walk",
			Duration:    "35 mins",
			Distance:    "2.4 km",
			ScenicScore: 9,
			CrowdLevel:  CrowdMedium,
			Description: "A beautiful walk along the River Lagan, passing the Big Fish and waterfront.",
			Landmarks:   []string{"Big Fish", "Beacon of Hope", "Custom House Square"},
			Steps: []RouteStep{
				{Instruction: "Head east towards the river"},
				{Instruction: "Follow the towpath north"},
			},
		},
		{
			Type:        RouteFast,
			Title:       "City Centre Dash",
			Duration:    "20 mins",
			Distance:    "1.8 km",
			ScenicScore: 4,
			CrowdLevel:  CrowdHigh,
			Description: "The most direct route through the main streets.",
			Landmarks:   []string{"Victoria Square"},
			Steps: []RouteStep{
				{Instruction: "Walk straight down Chichester St"},
				{Instruction: "Turn left at Oxford St"},
			},
		},
		{
			Type:        RouteTransport,
			Title:       "Glider G1 Link",
			Duration:    "15 mins",
			Distance:    "0.5 km (Walk)",
			ScenicScore: 5,
			CrowdLevel:  CrowdHigh,
			Description: "Walk to City Hall stop and take the G1 Glider.",
			Landmarks:   []string{"City Hall"},
			Steps: []RouteStep{
				{Instruction: "Walk to City Hall Glider Stop"},
				{Instruction: "Take G1 Eastbound"},
			},
		},
	}
}

// FallbackDensity is served when the advisor is disabled or unavailable.
func FallbackDensity() []ZoneDensity {
	return []ZoneDensity{
		{Name: "City Centre", DensityScore: 75, PopulationTrend: 80, Time: "Now"},
		{Name: "Titanic Quarter", DensityScore: 40, PopulationTrend: 35, Time: "Now"},
		{Name: "Queens Quarter", DensityScore: 60, PopulationTrend: 55, Time: "Now"},
	}
}
