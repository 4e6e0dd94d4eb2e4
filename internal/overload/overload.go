// Package overload decides whether rate-limit denials indicate sustained overload.
package overload

import "time"

// DenialCounter reports rate-limit denials within a window.
type DenialCounter interface {
	DenialCount(window time.Duration) int
}

// Threshold returns the denial count above which the service is overloaded:
// thresholdPct percent of the requests the limiter admits over window.
func Threshold(rps int, window time.Duration, thresholdPct int) float64 {
	return float64(rps) * window.Seconds() * float64(thresholdPct) / 100
}

// Exceeded reports whether denials in window exceed Threshold. Always false when
// the limiter is disabled (rps <= 0) or window is zero.
func Exceeded(c DenialCounter, window time.Duration, rps, thresholdPct int) bool {
	if c == nil || rps <= 0 || window <= 0 {
		return false
	}
	return float64(c.DenialCount(window)) > Threshold(rps, window, thresholdPct)
}
