// Package conversions holds the metric-to-imperial unit conversions used when
// building upload requests. All functions are pure; NaN and Inf propagate.
package conversions

import "math"

// Magnus formula coefficients (Alduchov & Eskridge form used by most PWS software).
const (
	magnusA = 17.27
	magnusB = 237.7
)

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// HPaToInHg converts hectopascals to inches of mercury.
func HPaToInHg(hpa float64) float64 {
	return hpa * 0.02953
}

// MSToMPH converts meters per second to miles per hour.
func MSToMPH(ms float64) float64 {
	return ms * 2.23694
}

// MMToInches converts millimeters to inches.
func MMToInches(mm float64) float64 {
	return mm * 0.0393701
}

// DewpointF estimates the dewpoint in °F from temperature (°C) and relative humidity (%).
// Humidity <= 0 has no logarithm, so the result is NaN or -Inf; callers check IsFinite.
func DewpointF(tempC, humidity float64) float64 {
	alpha := (magnusA*tempC)/(magnusB+tempC) + math.Log(humidity/100)
	dewpointC := (magnusB * alpha) / (magnusA - alpha)
	return CelsiusToFahrenheit(dewpointC)
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
