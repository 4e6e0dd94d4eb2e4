package overload

import (
	"testing"
	"time"
)

type fixedDenials int

func (f fixedDenials) DenialCount(time.Duration) int { return int(f) }

func TestThreshold(t *testing.T) {
	// 2 rps over 60s admits 120 requests; 50% of that is 60.
	if got := Threshold(2, time.Minute, 50); got != 60 {
		t.Errorf("Threshold() = %v, want 60", got)
	}
}

func TestExceeded(t *testing.T) {
	tests := []struct {
		name    string
		denials int
		rps     int
		window  time.Duration
		want    bool
	}{
		{"below", 10, 2, time.Minute, false},
		{"at threshold", 60, 2, time.Minute, false},
		{"above", 61, 2, time.Minute, true},
		{"limiter disabled", 1000, 0, time.Minute, false},
		{"zero window", 1000, 2, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Exceeded(fixedDenials(tt.denials), tt.window, tt.rps, 50); got != tt.want {
				t.Errorf("Exceeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExceeded_NilCounter(t *testing.T) {
	if Exceeded(nil, time.Minute, 1, 1) {
		t.Error("Exceeded(nil) = true")
	}
}
