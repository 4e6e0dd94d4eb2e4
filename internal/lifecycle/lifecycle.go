// Package lifecycle tracks the process phase reported by the health endpoint.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State is owned by main. Health reports shutting-down once BeginShutdown is called.
type State struct {
	started      time.Time
	shuttingDown atomic.Bool
}

// New returns a State that started at started.
func New(started time.Time) *State {
	return &State{started: started}
}

// BeginShutdown marks the process as draining. Call when SIGTERM/SIGINT is received.
func (s *State) BeginShutdown() {
	s.shuttingDown.Store(true)
}

// ShuttingDown reports whether the process is draining and should not receive new traffic.
func (s *State) ShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Started returns the process start time.
func (s *State) Started() time.Time {
	return s.started
}

// Uptime returns how long the process has been running at now.
func (s *State) Uptime(now time.Time) time.Duration {
	return now.Sub(s.started)
}
