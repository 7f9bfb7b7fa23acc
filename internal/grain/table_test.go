package grain

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

type fakeClock struct {
	pos     int
	resyncs int
}

func (c *fakeClock) Position() int { return c.pos }
func (c *fakeClock) Resync()       { c.resyncs++ }

func ramp(n int) []float32 {
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(i)
	}
	return src
}

func mustBuild(t *testing.T, l Layout) *Table {
	t.Helper()
	tab, err := Build(l)
	if err != nil {
		t.Fatalf("build %+v: %v", l, err)
	}
	return tab
}

func TestNumGrains(t *testing.T) {
	for _, tc := range []struct {
		n, size int
		pitch   float64
		want    int
		err     error
	}{
		{1000, 100, 1, 10, nil},
		{1000, 100, -1, 10, nil},
		{1000, 300, 1, 4, nil},
		{1000, 100, 0.5, 5, nil},
		{1000, 100, 2, 20, nil},
		{1000, 0, 1, 0, ErrZeroGrainSize},
		{1000, 100, 0, 0, ErrNoGrains},
	} {
		got, err := NumGrains(tc.n, tc.size, tc.pitch)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Errorf("NumGrains(%d, %d, %v) err = %v, want %v", tc.n, tc.size, tc.pitch, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("NumGrains(%d, %d, %v) = %d, %v; want %d", tc.n, tc.size, tc.pitch, got, err, tc.want)
		}
	}
}

func TestHeadIndex(t *testing.T) {
	for _, tc := range []struct {
		start, pitch float64
		size, n      int
		want         int
	}{
		{0, 1, 100, 10, 0},
		{250, 1, 100, 10, 3},
		{250, -1, 100, 10, 3},
		{950, 1, 100, 10, 0},
		{300, 2, 100, 20, 6},
		{500, 1, 100, 0, 0},
	} {
		if got := HeadIndex(tc.start, tc.pitch, tc.size, tc.n); got != tc.want {
			t.Errorf("HeadIndex(%v, %v, %d, %d) = %d, want %d", tc.start, tc.pitch, tc.size, tc.n, got, tc.want)
		}
	}
}

func TestBuildRejectsDegenerateLayouts(t *testing.T) {
	if _, err := Build(Layout{SourceLen: 1000, GrainSize: 0, Pitch: 1}); !errors.Is(err, ErrZeroGrainSize) {
		t.Fatalf("zero grain size: err = %v", err)
	}
	if _, err := Build(Layout{SourceLen: 0, GrainSize: 10, Pitch: 1}); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("empty source: err = %v", err)
	}
	if _, err := Build(Layout{SourceLen: 1000, GrainSize: 10, Pitch: math.NaN()}); err == nil {
		t.Fatal("NaN pitch should be rejected")
	}
}

func TestForwardLayout(t *testing.T) {
	tab := mustBuild(t, Layout{SourceLen: 1000, GrainSize: 100, Pitch: 1})
	if tab.Len() != 10 || tab.Reverse() {
		t.Fatalf("len=%d reverse=%v, want 10/false", tab.Len(), tab.Reverse())
	}
	for j := 0; j < tab.Len(); j++ {
		g := tab.Grain(j)
		if g.Index != j || g.Start != float64(100*j) || g.End != float64(100*j+99) {
			t.Fatalf("grain %d spans [%v, %v], want [%d, %d]", j, g.Start, g.End, 100*j, 100*j+99)
		}
		if g.Pos != g.Start || g.Steps != 0 {
			t.Fatalf("grain %d cursor %v/%d not at start", j, g.Pos, g.Steps)
		}
	}
	if tab.Successor(9) != 0 {
		t.Fatalf("successor of 9 = %d, want 0", tab.Successor(9))
	}
}

func TestReverseLayout(t *testing.T) {
	tab := mustBuild(t, Layout{SourceLen: 1000, GrainSize: 100, Pitch: -1})
	if !tab.Reverse() {
		t.Fatal("negative pitch should build a reverse table")
	}
	// Head 0 is placed first, then 9, 8, ... each a grain earlier.
	want := map[int][2]float64{
		0: {100, 1},
		9: {0, 901},
		8: {900, 801},
		1: {200, 101},
	}
	for j, span := range want {
		g := tab.Grain(j)
		if g.Start != span[0] || g.End != span[1] {
			t.Errorf("grain %d spans [%v, %v], want [%v, %v]", j, g.Start, g.End, span[0], span[1])
		}
	}
	for j := 0; j < tab.Len(); j++ {
		g := tab.Grain(j)
		if g.Start < 0 || g.Start >= 1000 || g.End < 0 || g.End >= 1000 {
			t.Fatalf("grain %d span [%v, %v] outside buffer", j, g.Start, g.End)
		}
	}
	if tab.Successor(0) != 9 {
		t.Fatalf("successor of 0 = %d, want 9", tab.Successor(0))
	}
}

func TestRingClosesAfterLenHops(t *testing.T) {
	for _, l := range []Layout{
		{SourceLen: 1000, GrainSize: 100, Pitch: 1},
		{SourceLen: 1000, GrainSize: 100, Pitch: -1, SprayedStart: 400, Head: 4},
		{SourceLen: 44100, GrainSize: 2205, Pitch: 1.5, SprayedStart: 1200, Head: 1},
		{SourceLen: 7, GrainSize: 7, Pitch: 1},
		{SourceLen: 5000, GrainSize: 33, Pitch: -0.75, Head: 90},
	} {
		tab := mustBuild(t, l)
		n := tab.Len()
		if n < 1 {
			t.Fatalf("%+v: empty ring", l)
		}
		for start := 0; start < n; start++ {
			i := tab.Successor(start)
			for hop := 1; hop < n; hop++ {
				if i == start {
					t.Fatalf("%+v: ring from %d closed early after %d hops", l, start, hop)
				}
				i = tab.Successor(i)
			}
			if i != start {
				t.Fatalf("%+v: %d hops from %d landed on %d", l, n, start, i)
			}
		}
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	l := Layout{SourceLen: 22050, GrainSize: 441, Pitch: -1.26, SprayedStart: 3000}
	l.Head = HeadIndex(l.SprayedStart, l.Pitch, l.GrainSize, 63)
	a := mustBuild(t, l)
	b := mustBuild(t, l)
	sa, sb := a.Spans(nil), b.Spans(nil)
	if len(sa) != len(sb) {
		t.Fatalf("span counts differ: %d vs %d", len(sa), len(sb))
	}
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("span %d differs: %+v vs %+v", i, sa[i], sb[i])
		}
	}
}

func TestSampleInterpolates(t *testing.T) {
	src := []float32{0, 10, 20}
	for _, tc := range []struct {
		pos, want float64
	}{
		{0, 0},
		{0.5, 5},
		{1.25, 12.5},
		{2, 20},
		{2.5, 20},
	} {
		if got := Sample(src, tc.pos); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Sample(%v) = %v, want %v", tc.pos, got, tc.want)
		}
	}
}

func TestSamplePanicsOutsideBuffer(t *testing.T) {
	src := []float32{1, 2, 3}
	for _, pos := range []float64{-0.5, 3, math.NaN()} {
		func() {
			defer func() {
				r := recover()
				if _, ok := r.(*BoundsError); !ok {
					t.Errorf("Sample(%v) recovered %v, want *BoundsError", pos, r)
				}
			}()
			Sample(src, pos)
		}()
	}
}

func TestWrapCursor(t *testing.T) {
	for _, tc := range []struct {
		v    float64
		n    int
		want float64
	}{
		{1000, 1000, 1},
		{999, 1000, 999},
		{-0.5, 1000, 998.5},
		{2500, 1000, 502},
		{3, 1, 0},
	} {
		if got := wrapCursor(tc.v, tc.n); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("wrapCursor(%v, %d) = %v, want %v", tc.v, tc.n, got, tc.want)
		}
	}
}

func TestScheduleHeadGrainCycles(t *testing.T) {
	src := ramp(1000)
	tab := mustBuild(t, Layout{SourceLen: 1000, GrainSize: 100, Pitch: 1})
	clk := &fakeClock{}
	for k := 0; k < 100; k++ {
		if got := tab.Schedule(src, 0, clk); got != float64(k) {
			t.Fatalf("sample %d = %v, want %d", k, got, k)
		}
	}
	if clk.resyncs != 1 {
		t.Fatalf("resyncs = %d after one grain cycle, want 1", clk.resyncs)
	}
	if g := tab.Grain(0); g.Pos != 0 || g.Steps != 0 {
		t.Fatalf("grain 0 not rewound: pos %v steps %d", g.Pos, g.Steps)
	}
	if got := tab.Schedule(src, 0, clk); got != 0 {
		t.Fatalf("first sample of second cycle = %v, want 0", got)
	}
}

func TestScheduleCascadesToCoveringGrain(t *testing.T) {
	src := ramp(1000)
	tab := mustBuild(t, Layout{SourceLen: 1000, GrainSize: 100, Pitch: 1})
	clk := &fakeClock{pos: 150}
	if got := tab.Schedule(src, 0, clk); got != 100 {
		t.Fatalf("sum = %v, want src[0]+src[100] = 100", got)
	}
	if !tab.Grain(0).Active || !tab.Grain(1).Active || tab.Grain(2).Active {
		t.Fatalf("active flags = %v %v %v, want true true false",
			tab.Grain(0).Active, tab.Grain(1).Active, tab.Grain(2).Active)
	}
	if g := tab.Grain(1); g.Pos != 101 || g.Steps != 1 {
		t.Fatalf("grain 1 cursor = %v/%d, want 101/1", g.Pos, g.Steps)
	}
}

func TestScheduleReverse(t *testing.T) {
	src := ramp(1000)
	head := HeadIndex(500, -1, 100, 10)
	tab := mustBuild(t, Layout{SourceLen: 1000, GrainSize: 100, Pitch: -1, SprayedStart: 500, Head: head})
	if head != 5 {
		t.Fatalf("head = %d, want 5", head)
	}
	// Mirrored position 999-549 = 450 falls inside grain 4's [500, 401].
	clk := &fakeClock{pos: 549}
	if got := tab.Schedule(src, head, clk); got != 1100 {
		t.Fatalf("sum = %v, want src[600]+src[500] = 1100", got)
	}
	if tab.Grain(3).Active {
		t.Fatal("grain 3 should not be active")
	}
	if got := tab.Schedule(src, head, clk); got != 1098 {
		t.Fatalf("second sum = %v, want src[599]+src[499] = 1098", got)
	}
}

func TestScheduleSingleGrainRingTerminates(t *testing.T) {
	src := ramp(100)
	tab := mustBuild(t, Layout{SourceLen: 100, GrainSize: 100, Pitch: 1})
	if tab.Len() != 1 {
		t.Fatalf("len = %d, want 1", tab.Len())
	}
	clk := &fakeClock{pos: 50}
	if got := tab.Schedule(src, 0, clk); got != 0 {
		t.Fatalf("sum = %v, want 0", got)
	}
}

func TestScheduleCascadeIsBounded(t *testing.T) {
	// Every grain covers every position, so the walk only ends on the bound.
	src := ramp(64)
	tab := mustBuild(t, Layout{SourceLen: 64, GrainSize: 64, Pitch: 4})
	for i := 0; i < tab.Len(); i++ {
		tab.grains[i].Start, tab.grains[i].End = 0, 63
	}
	clk := &fakeClock{pos: 10}
	tab.Schedule(src, 0, clk)
	for i := 0; i < tab.Len(); i++ {
		if g := tab.Grain(i); !g.Active || g.Steps != 1 {
			t.Fatalf("grain %d active=%v steps=%d, want one visit", i, g.Active, g.Steps)
		}
	}
}
