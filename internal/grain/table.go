package grain

import (
	"math"

	"github.com/pkg/errors"
)

var (
	ErrZeroGrainSize = errors.New("grain: grain size must be at least one sample")
	ErrNoGrains      = errors.New("grain: layout yields no grains")
	ErrEmptySource   = errors.New("grain: source is empty")
)

// Clock is the global playback position the scheduler tests grains against.
// Resync is called whenever a grain completes a full cycle.
type Clock interface {
	Position() int
	Resync()
}

// Layout describes a table build. A negative Pitch plays grains in reverse.
type Layout struct {
	SourceLen    int
	GrainSize    int
	Pitch        float64
	SprayedStart float64
	Head         int
}

// Table is a ring of grains. Tables are never modified structurally after
// Build; a parameter change builds a new one and swaps it in.
type Table struct {
	grains    []Grain
	sourceLen int
	grainSize int
	pitch     float64
	reverse   bool
	head      int
}

// NumGrains returns ceil(|sourceLen*pitch| / grainSize).
func NumGrains(sourceLen, grainSize int, pitch float64) (int, error) {
	if grainSize <= 0 {
		return 0, errors.Wrapf(ErrZeroGrainSize, "got %d", grainSize)
	}
	n := int(math.Ceil(math.Abs(float64(sourceLen)*pitch) / float64(grainSize)))
	if n <= 0 {
		return 0, errors.Wrapf(ErrNoGrains, "source %d, grain %d, pitch %v", sourceLen, grainSize, pitch)
	}
	return n, nil
}

// HeadIndex picks the grain that covers sprayedStart.
func HeadIndex(sprayedStart, pitch float64, grainSize, numGrains int) int {
	if numGrains <= 0 || grainSize <= 0 {
		return 0
	}
	i := int(math.Ceil(sprayedStart*math.Abs(pitch)/float64(grainSize))) % numGrains
	if i < 0 {
		i += numGrains
	}
	return i
}

// Build allocates and populates a fresh table. Grains are placed from the
// head outward in playback order, each one a grain's worth of source further
// along than the last.
func Build(l Layout) (*Table, error) {
	if l.SourceLen <= 0 {
		return nil, ErrEmptySource
	}
	if math.IsNaN(l.Pitch) || math.IsInf(l.Pitch, 0) || math.IsNaN(l.SprayedStart) || math.IsInf(l.SprayedStart, 0) {
		return nil, errors.Errorf("grain: non-finite layout (pitch %v, start %v)", l.Pitch, l.SprayedStart)
	}
	n, err := NumGrains(l.SourceLen, l.GrainSize, l.Pitch)
	if err != nil {
		return nil, err
	}
	t := &Table{
		grains:    make([]Grain, n),
		sourceLen: l.SourceLen,
		grainSize: l.GrainSize,
		pitch:     l.Pitch,
		reverse:   l.Pitch < 0,
		head:      ((l.Head % n) + n) % n,
	}

	step := l.Pitch * float64(l.GrainSize)
	var offset float64
	i := t.head
	for k := 0; k < n; k++ {
		start := l.SprayedStart + offset
		if t.reverse {
			start += float64(l.GrainSize)
		}
		t.grains[i] = newGrain(i, l.GrainSize, start, l.Pitch, l.SourceLen)
		offset += step
		i = t.Successor(i)
	}
	return t, nil
}

func (t *Table) Len() int          { return len(t.grains) }
func (t *Table) Grain(i int) Grain { return t.grains[i] }
func (t *Table) Head() int         { return t.head }
func (t *Table) Pitch() float64    { return t.pitch }
func (t *Table) GrainSize() int    { return t.grainSize }
func (t *Table) Reverse() bool     { return t.reverse }
func (t *Table) SourceLen() int    { return t.sourceLen }

// Successor returns the grain scheduled after i. Following it from any grain
// returns to that grain after exactly Len hops.
func (t *Table) Successor(i int) int {
	n := len(t.grains)
	if t.reverse {
		return (i - 1 + n) % n
	}
	return (i + 1) % n
}

// Spans appends a view of every grain to dst and returns it.
func (t *Table) Spans(dst []Span) []Span {
	for _, g := range t.grains {
		dst = append(dst, Span{Index: g.Index, Start: g.Start, End: g.End, Pos: g.Pos, Active: g.Active})
	}
	return dst
}

// covers reports whether the playback position lies inside g's span. Reverse
// tables mirror the position and compare against a descending span.
func (t *Table) covers(g *Grain, pos int) bool {
	p := float64(pos)
	if t.reverse {
		p = float64(t.sourceLen-1) - p
		return p <= g.Start && p >= g.End
	}
	return g.Start <= p && g.End >= p
}

// Schedule runs one sample of the cascade starting at head and returns the
// sum of every active grain's interpolated output. The walk follows
// successors and stops at the first inactive grain, which rewinds its cursor.
// It never visits more than Len grains.
func (t *Table) Schedule(src []float32, head int, clk Clock) float64 {
	n := len(t.grains)
	if n == 0 {
		return 0
	}
	head = ((head % n) + n) % n

	var acc float64
	i := head
	for k := 0; k < n; k++ {
		g := &t.grains[i]
		g.Active = i == head || t.covers(g, clk.Position())
		if !g.Active {
			g.rewind(t.pitch, t.sourceLen)
			break
		}
		acc += Sample(src, g.Pos)
		g.Pos = g.Next
		g.Next = wrapCursor(g.Next+t.pitch, t.sourceLen)
		g.Steps++
		if g.Steps >= g.Size {
			g.rewind(t.pitch, t.sourceLen)
			clk.Resync()
		}
		i = t.Successor(i)
	}
	return acc
}
