package timing

import (
	"testing"
	"time"
)

func TestTracker_RecordsPhases(t *testing.T) {
	tr := NewTracker()

	tr.Start("resolve")
	time.Sleep(10 * time.Millisecond)
	elapsed := tr.Stop("resolve")
	if elapsed <= 0 {
		t.Fatalf("Stop() = %v, want positive duration", elapsed)
	}

	tr.Start("persist")
	tr.Stop("persist")

	phases := tr.Phases()
	if len(phases) != 2 {
		t.Fatalf("Phases() = %d entries, want 2", len(phases))
	}
	if phases[0].Phase != "resolve" || phases[1].Phase != "persist" {
		t.Fatalf("phase order = %v, want first-start order", phases)
	}
	if phases[0].DurationMs < 5 {
		t.Fatalf("resolve duration = %dms, want at least the slept time", phases[0].DurationMs)
	}
}

func TestTracker_StopWithoutStartIsNoOp(t *testing.T) {
	tr := NewTracker()
	if elapsed := tr.Stop("ghost"); elapsed != 0 {
		t.Fatalf("Stop(unstarted) = %v, want 0", elapsed)
	}
	if phases := tr.Phases(); len(phases) != 0 {
		t.Fatalf("Phases() = %v, want none", phases)
	}
}

func TestTracker_AccumulatesAcrossIntervals(t *testing.T) {
	tr := NewTracker()

	tr.Start("enrich")
	tr.Stop("enrich")
	tr.Start("enrich")
	tr.Stop("enrich")

	phases := tr.Phases()
	if len(phases) != 1 {
		t.Fatalf("Phases() = %d entries, want the phase recorded once", len(phases))
	}
}
