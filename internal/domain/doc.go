// Package domain models pedestrian thermal comfort derived from weather
// observations, and the walking advice built around it.
//
// # Observations
//
// A [WeatherObservation] carries the five inputs of the comfort model:
//
//	Temperature  air temperature, °C
//	WindSpeed    wind speed at 10 m, m/s
//	Humidity     relative humidity, %
//	CloudCover   total cloud cover, %
//	IsDaytime    true between sunrise and sunset
//
// None of these are clamped. Humidity or cloud cover outside [0, 100] shift the
// index proportionally. Observations arrive from the live weather source, from
// the Kafka source topic, or from an HTTP request. When the live source is
// unavailable a fixed fallback observation (12 °C, 5 m/s, 75 %, 50 %, day) is
// substituted by [ObserveWithFallback].
//
// # Comfort Index
//
// [ComputeComfort] is a simplified proxy for the Universal Thermal Climate
// Index (UTCI). The full UTCI is a high-order regression over air
// temperature, wind, humidity and mean radiant temperature (Tmrt); this model
// keeps the same inputs with linear and square-root approximations:
//
//	tmrtOffset     = day ? (100 - cloudCover) / 100 * 8 : 0
//	windEffect     = -2 * sqrt(windSpeed)
//	humidityEffect = temperature > 20 ? humidity / 100 * 2 : 0
//	radiantEffect  = tmrtOffset * 0.5
//	value          = round1(temperature + windEffect + humidityEffect + radiantEffect)
//
// Full sun is worth up to +8 °C of radiant load, scaled by the clear fraction
// of the sky and only half of it reaches the index. Humidity only adds
// perceived warmth above 20 °C.
//
// Negative wind speed makes the square root NaN. The NaN propagates into the
// value and fails every threshold comparison, landing in Strong Cold Stress.
// Callers that need well-formed output run [ValidateObservation] first.
//
// # Stress Categories
//
// The rounded value is classified by [StressBands], evaluated top-down with
// strict greater-than comparisons, so a value sitting exactly on a threshold
// falls into the colder band:
//
//	> 38   Extreme Heat Stress   severe-hot
//	> 32   Strong Heat Stress    strong-hot
//	> 26   Moderate Heat Stress  moderate-hot
//	> 9    No Thermal Stress     neutral
//	> 0    Slight Cold Stress    slight-cold
//	> -13  Moderate Cold Stress  moderate-cold
//	else   Strong Cold Stress    strong-cold
//
// The category label, guidance text and display weight always come from the
// same band.
//
// # Walking Advice
//
// Route suggestions and crowd-density estimates come from an [Advisor]. The
// advisor is optional; [PlanRoutes] and [PlanDensity] fall back to static
// data when it is disabled or fails.
//
// # Report IDs
//
// Comfort report IDs are deterministic SHA-256 hashes of the station,
// observation time and the five model inputs, so replaying a source topic
// yields the same IDs downstream. See [generateID].
package domain
