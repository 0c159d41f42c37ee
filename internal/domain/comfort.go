package domain

import "math"

// ComfortResult is the outcome of a comfort estimate.
type ComfortResult struct {
	Value          float64 `json:"value"`
	StressCategory string  `json:"stress_category"`
	Description    string  `json:"description"`
	DisplayWeight  string  `json:"display_weight"`
}

// StressBand is one row of the comfort threshold ladder. A value belongs to
// the band when it is strictly greater than Above.
type StressBand struct {
	Above         float64
	Category      string
	Description   string
	DisplayWeight string
}

// Stress category labels.
const (
	ExtremeHeatStress  = "Extreme Heat Stress"
	StrongHeatStress   = "Strong Heat Stress"
	ModerateHeatStress = "Moderate Heat Stress"
	NoThermalStress    = "No Thermal Stress"
	SlightColdStress   = "Slight Cold Stress"
	ModerateColdStress = "Moderate Cold Stress"
	StrongColdStress   = "Strong Cold Stress"
)

// StressBands is ordered hottest first. The last band is the catch-all and
// its Above is -Inf.
var StressBands = []StressBand{
	{Above: 38, Category: ExtremeHeatStress, Description: "Avoid outdoor exertion. Seek shade.", DisplayWeight: "severe-hot"},
	{Above: 32, Category: StrongHeatStress, Description: "Walk slowly, carry water.", DisplayWeight: "strong-hot"},
	{Above: 26, Category: ModerateHeatStress, Description: "Warm. Comfortable for strolling.", DisplayWeight: "moderate-hot"},
	{Above: 9, Category: NoThermalStress, Description: "Ideal walking conditions. Enjoy!", DisplayWeight: "neutral"},
	{Above: 0, Category: SlightColdStress, Description: "Cool. Wear a light jacket.", DisplayWeight: "slight-cold"},
	{Above: -13, Category: ModerateColdStress, Description: "Chilly. Coat and scarf recommended.", DisplayWeight: "moderate-cold"},
	{Above: math.Inf(-1), Category: StrongColdStress, Description: "Freezing. Limit exposure.", DisplayWeight: "strong-cold"},
}

const (
	// maxRadiantOffset is the radiant heat of a cloudless day, °C.
	maxRadiantOffset = 8.0
	// humidityThreshold is the air temperature above which humidity adds warmth.
	humidityThreshold = 20.0
	radiantWeight     = 0.5
	windCoefficient   = -2.0
	humidityWeight    = 2.0
)

// ComputeComfort estimates the comfort index for the given conditions.
// It never fails and has no side effects; see the package documentation for
// the model and its approximations.
func ComputeComfort(temperature, windSpeed, humidity, cloudCover float64, isDaytime bool) ComfortResult {
	tmrtOffset := 0.0
	if isDaytime {
		sunFactor := (100 - cloudCover) / 100
		tmrtOffset = sunFactor * maxRadiantOffset
	}
	effectiveRadiantTemp := temperature + tmrtOffset

	windEffect := windCoefficient * math.Sqrt(windSpeed)

	humidityEffect := 0.0
	if temperature > humidityThreshold {
		humidityEffect = (humidity / 100) * humidityWeight
	}

	// Half of the radiant offset is applied again on top of the base
	// temperature. This is part of the model.
	radiantEffect := (effectiveRadiantTemp - temperature) * radiantWeight

	value := roundToTenth(temperature + windEffect + humidityEffect + radiantEffect)
	band := ClassifyComfort(value)

	return ComfortResult{
		Value:          value,
		StressCategory: band.Category,
		Description:    band.Description,
		DisplayWeight:  band.DisplayWeight,
	}
}

// ClassifyComfort returns the first band whose threshold value exceeds.
// NaN exceeds nothing and lands in the last band.
func ClassifyComfort(value float64) StressBand {
	for _, band := range StressBands[:len(StressBands)-1] {
		if value > band.Above {
			return band
		}
	}
	return StressBands[len(StressBands)-1]
}

// roundToTenth rounds half away from zero to one decimal place.
func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
