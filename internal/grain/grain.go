// Package grain holds the grain ring and the per-sample scheduling cascade
// that reads every active grain out of the source buffer.
package grain

import (
	"fmt"
	"math"
)

// Grain is one excerpt of the source with its own read cursor. Start and End
// are wrapped into [0, N); Pos and Next are fractional sample positions.
type Grain struct {
	Size   int
	Index  int
	Start  float64
	End    float64
	Pos    float64
	Next   float64
	Steps  int
	Active bool
}

// Span is the read-only view of a grain used by displays.
type Span struct {
	Index  int
	Start  float64
	End    float64
	Pos    float64
	Active bool
}

// BoundsError reports a read cursor outside the source buffer. It is raised
// with panic: a cursor can only leave the buffer through a bug in the table
// arithmetic, never through user input.
type BoundsError struct {
	Pos float64
	Len int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("grain: read position %v outside [0, %d)", e.Pos, e.Len)
}

func newGrain(index, size int, start, pitch float64, sourceLen int) Grain {
	start = wrapSpan(start, sourceLen)
	g := Grain{
		Size:  size,
		Index: index,
		Start: start,
		End:   wrapSpan(start+float64(size-1)*pitch, sourceLen),
	}
	g.rewind(pitch, sourceLen)
	return g
}

func (g *Grain) rewind(pitch float64, sourceLen int) {
	g.Pos = g.Start
	g.Next = wrapCursor(g.Start+pitch, sourceLen)
	g.Steps = 0
}

// Sample reads src at a fractional position with linear interpolation
// between the floor and ceil indices. The ceil index is clamped to the last
// sample. Positions outside [0, len(src)) panic with *BoundsError.
func Sample(src []float32, pos float64) float64 {
	n := len(src)
	if !(pos >= 0 && pos < float64(n)) {
		panic(&BoundsError{Pos: pos, Len: n})
	}
	lo := math.Floor(pos)
	hi := int(math.Ceil(pos))
	if hi > n-1 {
		hi = n - 1
	}
	frac := pos - lo
	return float64(src[int(lo)])*(1-frac) + float64(src[hi])*frac
}

// wrapSpan folds v into [0, n) by whole buffer lengths.
func wrapSpan(v float64, n int) float64 {
	if n <= 0 || math.IsInf(v, 0) {
		return v
	}
	fn := float64(n)
	for v < 0 {
		v += fn
	}
	for v >= fn {
		v -= fn
	}
	return v
}

// wrapCursor folds a read cursor back into [0, n-1]. Cursors wrap on the
// last index, so stepping past n-1 by d lands on d.
func wrapCursor(v float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	if math.IsInf(v, 0) {
		return v
	}
	last := float64(n - 1)
	for v > last {
		v -= last
	}
	for v < 0 {
		v += last
	}
	return v
}
