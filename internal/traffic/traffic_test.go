package traffic

import (
	"testing"
	"time"
)

// fakeClock returns a tracker whose clock is advanced manually.
func fakeClock() (*Tracker, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestRequestCount_Empty(t *testing.T) {
	tr := NewTracker()
	if n := tr.RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRecordDenied_AndCounts verifies that RecordDenied increments both
// DenialCount and RequestCount.
func TestRecordDenied_AndCounts(t *testing.T) {
	tr := NewTracker()
	tr.RecordDenied()
	tr.RecordDenied()
	tr.RecordSuccess()
	if n := tr.DenialCount(1 * time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	if n := tr.RequestCount(1 * time.Minute); n != 3 {
		t.Errorf("RequestCount() = %d, want 3", n)
	}
}

// TestErrorRate_DeniedExcluded verifies that denials do not count toward the upload error rate.
func TestErrorRate_DeniedExcluded(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordError()
	tr.RecordDenied()
	errors, total := tr.ErrorRate(1 * time.Minute)
	if errors != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", errors, total)
	}
}

// TestWindowAndPrune verifies old outcomes fall out of the window and are pruned past retention.
func TestWindowAndPrune(t *testing.T) {
	tr, now := fakeClock()
	tr.RecordError()
	*now = now.Add(2 * time.Minute)
	tr.RecordSuccess()

	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("ErrorRate(1m) = (%d, %d), want (0, 1)", errs, total)
	}
	if errs, _ := tr.ErrorRate(5 * time.Minute); errs != 1 {
		t.Errorf("ErrorRate(5m) errors = %d, want 1", errs)
	}

	*now = now.Add(DefaultRetention + time.Second)
	tr.RecordDenied()
	tr.mu.Lock()
	kept := len(tr.errorTimes) + len(tr.successTimes)
	tr.mu.Unlock()
	if kept != 0 {
		t.Errorf("pruned slices still hold %d entries", kept)
	}
}

// TestRetention_CoversLongerWindow verifies a 10m window still sees an error
// recorded 7 minutes ago once retention is raised to match it.
func TestRetention_CoversLongerWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		tracker  *Tracker
		wantErrs int
	}{
		{"default retention", NewTracker(), 0},
		{"ten minute retention", NewTrackerWithRetention(10 * time.Minute), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start
			tt.tracker.now = func() time.Time { return now }
			tt.tracker.RecordError()
			now = now.Add(7 * time.Minute)
			tt.tracker.RecordSuccess()

			errs, total := tt.tracker.ErrorRate(10 * time.Minute)
			if errs != tt.wantErrs || total != tt.wantErrs+1 {
				t.Errorf("ErrorRate(10m) = (%d, %d), want (%d, %d)", errs, total, tt.wantErrs, tt.wantErrs+1)
			}
		})
	}
}

func TestNewTrackerWithRetention_FloorsAtDefault(t *testing.T) {
	if tr := NewTrackerWithRetention(time.Minute); tr.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", tr.retention, DefaultRetention)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordError()
	tr.RecordDenied()
	tr.Reset()
	if n := tr.RequestCount(time.Hour); n != 0 {
		t.Errorf("RequestCount() after Reset = %d, want 0", n)
	}
}
