package position

import (
	"testing"

	"github.com/cbegin/granular-go/internal/spray"
)

func newTracker(n, start, grain int) *Tracker {
	t := New(n, nil)
	t.SetStart(start)
	t.SetGrainSize(grain)
	t.Reset()
	return t
}

func TestResetIsIdempotent(t *testing.T) {
	tr := newTracker(1000, 250, 100)
	pos, end := tr.Position(), tr.CycleEnd()
	tr.Reset()
	if tr.Position() != pos || tr.CycleEnd() != end {
		t.Fatalf("second reset moved state: pos %d->%d end %d->%d", pos, tr.Position(), end, tr.CycleEnd())
	}
	if pos != 250 || end != 350 {
		t.Fatalf("pos=%d end=%d, want 250/350", pos, end)
	}
}

func TestResetWrapsCycleEnd(t *testing.T) {
	tr := newTracker(1000, 950, 100)
	if tr.CycleEnd() != 50 {
		t.Fatalf("cycle end = %d, want 50", tr.CycleEnd())
	}
}

func TestNormalizeHandlesLargeOffsets(t *testing.T) {
	for _, tc := range []struct {
		v, n, want int
	}{
		{-1, 1000, 999},
		{-2500, 1000, 500},
		{3200, 1000, 200},
		{0, 1000, 0},
		{5, 0, 0},
	} {
		if got := Normalize(tc.v, tc.n); got != tc.want {
			t.Errorf("Normalize(%d, %d) = %d, want %d", tc.v, tc.n, got, tc.want)
		}
	}
}

func TestAdvanceReturnsToStartAtCycleEnd(t *testing.T) {
	tr := newTracker(1000, 100, 10)
	for i := 1; i < 10; i++ {
		tr.Advance(true)
		if tr.Position() != 100+i {
			t.Fatalf("step %d: pos = %d, want %d", i, tr.Position(), 100+i)
		}
	}
	tr.Advance(true)
	if tr.Position() != 100 {
		t.Fatalf("pos = %d at cycle end, want 100", tr.Position())
	}
}

func TestAdvanceAcrossBufferEnd(t *testing.T) {
	tr := newTracker(1000, 995, 10)
	seen := map[int]bool{}
	for i := 0; i < 30; i++ {
		tr.Advance(true)
		seen[tr.Position()] = true
		if p := tr.Position(); p < 0 || p >= 1000 {
			t.Fatalf("position %d out of range", p)
		}
	}
	if !seen[0] || !seen[4] {
		t.Fatal("position should wrap through 0 before the cycle end")
	}
	if seen[5] || seen[500] {
		t.Fatal("position should return to start at cycle end 5")
	}
}

func TestAdvanceCycleEndAtZero(t *testing.T) {
	tr := newTracker(100, 90, 10)
	if tr.CycleEnd() != 0 {
		t.Fatalf("cycle end = %d, want 0", tr.CycleEnd())
	}
	for i := 0; i < 10; i++ {
		tr.Advance(true)
	}
	if tr.Position() != 90 {
		t.Fatalf("pos = %d, want 90", tr.Position())
	}
}

func TestSprayNudgesOncePerCycle(t *testing.T) {
	src := spray.New(3)
	src.SetAmount(40)
	tr := New(1000, src)
	tr.SetStart(500)
	tr.SetGrainSize(100)
	tr.Reset()

	var nudged bool
	for i := 0; i < 10 && !nudged; i++ {
		nudged = tr.Advance(true)
	}
	if !nudged {
		t.Fatal("expected a spray nudge")
	}
	off := tr.Offset()
	if off < -40 || off >= 40 || off == 0 {
		t.Fatalf("offset %d outside nonzero [-40, 40)", off)
	}
	if tr.SprayedStart() != 500+off || tr.Position() != 500+off {
		t.Fatalf("sprayed=%d pos=%d, want %d", tr.SprayedStart(), tr.Position(), 500+off)
	}
	if tr.Advance(true) {
		t.Fatal("pending offset should block a second nudge")
	}
	tr.Resync()
	if tr.Offset() != 0 || tr.Position() != 500 {
		t.Fatalf("resync left offset=%d pos=%d", tr.Offset(), tr.Position())
	}
}

func TestSprayWaitsForGate(t *testing.T) {
	src := spray.New(3)
	src.SetAmount(40)
	tr := New(1000, src)
	tr.SetStart(500)
	tr.SetGrainSize(100)
	tr.Reset()
	if tr.Advance(false) {
		t.Fatal("closed gate should not draw a spray offset")
	}
	if tr.Position() != 501 {
		t.Fatalf("pos = %d, want 501", tr.Position())
	}
}
