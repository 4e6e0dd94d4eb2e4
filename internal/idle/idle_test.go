package idle

import (
	"testing"
	"time"
)

func TestSilent(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		last     time.Time
		now      time.Time
		window   time.Duration
		lifespan time.Duration
		want     bool
	}{
		{"disabled", time.Time{}, start.Add(time.Hour), 0, 0, false},
		{"within minimum lifespan", time.Time{}, start.Add(time.Minute), 30 * time.Second, 5 * time.Minute, false},
		{"never received after window", time.Time{}, start.Add(10 * time.Minute), 5 * time.Minute, time.Minute, true},
		{"never received inside window", time.Time{}, start.Add(2 * time.Minute), 5 * time.Minute, time.Minute, false},
		{"recent sample", start.Add(9 * time.Minute), start.Add(10 * time.Minute), 5 * time.Minute, time.Minute, false},
		{"stale sample", start.Add(time.Minute), start.Add(10 * time.Minute), 5 * time.Minute, time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Silent(tt.last, start, tt.now, tt.window, tt.lifespan); got != tt.want {
				t.Errorf("Silent() = %v, want %v", got, tt.want)
			}
		})
	}
}
