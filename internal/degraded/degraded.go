// Package degraded decides whether destination upload failures have crossed the
// configured error rate. Recovery is implicit: once successful uploads push the
// failure share back under the threshold, the service reports healthy again.
package degraded

import "time"

// ErrorRater reports upload failures and total uploads within a window.
type ErrorRater interface {
	ErrorRate(window time.Duration) (errors, total int)
}

// Percent returns the failure share in window as 0..100. Zero uploads is 0.
func Percent(r ErrorRater, window time.Duration) float64 {
	if r == nil {
		return 0
	}
	errors, total := r.ErrorRate(window)
	if total == 0 {
		return 0
	}
	return float64(errors) * 100 / float64(total)
}

// Exceeded reports whether the failure share in window is at or above errorPct.
// A zero window or errorPct disables the check.
func Exceeded(r ErrorRater, window time.Duration, errorPct int) bool {
	if window <= 0 || errorPct <= 0 {
		return false
	}
	errors, total := 0, 0
	if r != nil {
		errors, total = r.ErrorRate(window)
	}
	if total == 0 {
		return false
	}
	return float64(errors)*100/float64(total) >= float64(errorPct)
}
