// Package state holds the most recently accepted raw sample fields.
package state

import (
	"maps"
	"sync"
	"time"
)

// Snapshot is a copy of the latest accepted fields and when they were stored.
type Snapshot struct {
	Fields     map[string]float64 `json:"fields"`
	ReceivedAt time.Time          `json:"receivedAt"`
}

// Latest is the reader/writer-locked container for the last accepted sample.
// Replace swaps the whole map; readers never see a mix of two samples.
type Latest struct {
	mu         sync.RWMutex
	fields     map[string]float64
	receivedAt time.Time
	now        func() time.Time
}

// NewLatest returns an empty container.
func NewLatest() *Latest {
	return &Latest{
		fields: map[string]float64{},
		now:    time.Now,
	}
}

// Replace stores a copy of fields as the latest sample and returns the stored snapshot.
func (l *Latest) Replace(fields map[string]float64) Snapshot {
	return l.ReplaceWith(fields, nil)
}

// ReplaceWith is Replace, calling onReplace with the new snapshot before the
// write lock is released. Concurrent replacements therefore reach onReplace
// in the order they were stored, and the last call always describes the
// sample that Snapshot returns. onReplace must not call back into l.
func (l *Latest) ReplaceWith(fields map[string]float64, onReplace func(Snapshot)) Snapshot {
	cp := maps.Clone(fields)
	if cp == nil {
		cp = map[string]float64{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields = cp
	l.receivedAt = l.now()
	snap := Snapshot{Fields: maps.Clone(cp), ReceivedAt: l.receivedAt}
	if onReplace != nil {
		onReplace(Snapshot{Fields: maps.Clone(cp), ReceivedAt: l.receivedAt})
	}
	return snap
}

// Snapshot returns a copy of the latest fields under the shared lock.
func (l *Latest) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{Fields: maps.Clone(l.fields), ReceivedAt: l.receivedAt}
}

// Len returns the number of stored fields.
func (l *Latest) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fields)
}
