package timing

import (
	"sync"
	"time"
)

// Tracker records wall-clock durations per pipeline phase. Phases may run
// concurrently; the tracker is safe for use from multiple goroutines.
type Tracker struct {
	mu     sync.Mutex
	starts map[string]time.Time
	totals map[string]time.Duration
	order  []string
}

// NewTracker returns an empty phase tracker.
func NewTracker() *Tracker {
	return &Tracker{
		starts: make(map[string]time.Time),
		totals: make(map[string]time.Duration),
	}
}

// Start marks the beginning of a phase. Starting an already running phase
// restarts its clock.
func (t *Tracker) Start(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, known := t.totals[phase]; !known {
		t.order = append(t.order, phase)
		t.totals[phase] = 0
	}
	t.starts[phase] = time.Now()
}

// Stop ends a phase and adds the elapsed time to its total. Stopping a phase
// that was never started is a no-op.
func (t *Tracker) Stop(phase string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.starts[phase]
	if !ok {
		return 0
	}
	delete(t.starts, phase)
	elapsed := time.Since(start)
	t.totals[phase] += elapsed
	return elapsed
}

// Phases returns the recorded phase names in first-start order with their
// accumulated durations in milliseconds.
func (t *Tracker) Phases() []PhaseDuration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PhaseDuration, 0, len(t.order))
	for _, phase := range t.order {
		out = append(out, PhaseDuration{
			Phase:      phase,
			DurationMs: t.totals[phase].Milliseconds(),
		})
	}
	return out
}

// PhaseDuration is one phase's accumulated wall-clock time.
type PhaseDuration struct {
	Phase      string `json:"phase"`
	DurationMs int64  `json:"duration_ms"`
}
