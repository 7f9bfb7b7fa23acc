// Package position tracks the global playback position that decides which
// grains are active, including the sprayed start offset and the cycle end
// that pulls the position back to the configured start.
package position

import "github.com/cbegin/granular-go/internal/spray"

type Tracker struct {
	sourceLen int
	grainSize int
	start     int // configured start, never touched by spray
	offset    int // pending spray offset; 0 means none
	sprayed   int
	pos       int
	cycleEnd  int
	spray     *spray.Source
}

// New returns a tracker for a source of sourceLen samples. src may be nil,
// which disables spray.
func New(sourceLen int, src *spray.Source) *Tracker {
	if src == nil {
		src = spray.New(0)
	}
	return &Tracker{sourceLen: sourceLen, spray: src}
}

func (t *Tracker) SetStart(start int)    { t.start = start }
func (t *Tracker) SetGrainSize(size int) { t.grainSize = size }
func (t *Tracker) Start() int            { return t.start }
func (t *Tracker) GrainSize() int        { return t.grainSize }
func (t *Tracker) Position() int         { return t.pos }
func (t *Tracker) CycleEnd() int         { return t.cycleEnd }
func (t *Tracker) SprayedStart() int     { return t.sprayed }
func (t *Tracker) Offset() int           { return t.offset }
func (t *Tracker) Spray() *spray.Source  { return t.spray }

// Reset recomputes the sprayed start and restarts the cycle from it.
func (t *Tracker) Reset() {
	t.sprayed = Normalize(t.start+t.offset, t.sourceLen)
	t.pos = t.sprayed
	if t.sourceLen > 0 {
		t.cycleEnd = (t.pos + t.grainSize) % t.sourceLen
	} else {
		t.cycleEnd = 0
	}
}

// Resync drops any pending spray offset and resets. Grains call it when
// they finish a cycle so the global position cannot drift from them.
func (t *Tracker) Resync() {
	t.offset = 0
	t.Reset()
}

// Advance moves the position one sample. It reports true when a new spray
// offset was applied instead, in which case the caller must re-derive the
// head grain.
func (t *Tracker) Advance(gate bool) bool {
	if t.spray.Enabled() && t.offset == 0 && gate {
		t.offset = t.spray.Next()
		if t.offset != 0 {
			t.Reset()
			return true
		}
		return false
	}
	if t.sourceLen <= 0 {
		return false
	}
	next := t.pos + 1
	crossed := t.pos < t.cycleEnd && next >= t.cycleEnd
	if next >= t.sourceLen {
		next = 0
		if t.cycleEnd == 0 {
			crossed = true
		}
	} else if next < 0 {
		next += t.sourceLen
	}
	if crossed {
		next = Normalize(t.start, t.sourceLen)
	}
	t.pos = next
	return false
}

// Normalize folds v into [0, n) by whole buffer lengths so offsets larger
// than one buffer still land in range.
func Normalize(v, n int) int {
	if n <= 0 {
		return 0
	}
	for v < 0 {
		v += n
	}
	for v >= n {
		v -= n
	}
	return v
}
