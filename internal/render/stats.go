package render

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats accumulates pipeline counters for the HUD and the headless report.
// All fields are updated atomically; Snapshot gives a consistent-enough view
// for display purposes.
type Stats struct {
	dispatches      atomic.Uint64
	frames          atomic.Uint64
	stalePartials   atomic.Uint64
	faults          atomic.Uint64
	lastCompositeUS atomic.Int64
}

// StatsSnapshot is one point-in-time copy of the counters.
type StatsSnapshot struct {
	Dispatches    uint64
	Frames        uint64
	StalePartials uint64
	Faults        uint64
	LastComposite time.Duration
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Dispatches:    s.dispatches.Load(),
		Frames:        s.frames.Load(),
		StalePartials: s.stalePartials.Load(),
		Faults:        s.faults.Load(),
		LastComposite: time.Duration(s.lastCompositeUS.Load()) * time.Microsecond,
	}
}

// String formats the snapshot as a single HUD line.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("frames=%d dispatched=%d stale_drops=%d faults=%d composite=%s",
		s.Frames, s.Dispatches, s.StalePartials, s.Faults, s.LastComposite)
}
