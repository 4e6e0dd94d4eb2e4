// Package idle detects a station that has stopped pushing samples.
package idle

import "time"

// Silent reports whether no sample has been accepted within window. Processes
// younger than minimumLifespan are never silent, so a fresh start is not
// reported idle before the agent's first push. A zero window disables the check.
func Silent(lastSample, started, now time.Time, window, minimumLifespan time.Duration) bool {
	if window <= 0 {
		return false
	}
	if now.Sub(started) < minimumLifespan {
		return false
	}
	if lastSample.IsZero() {
		return now.Sub(started) >= window
	}
	return now.Sub(lastSample) >= window
}
