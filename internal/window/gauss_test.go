package window

import (
	"math"
	"testing"
)

func TestGaussPeakAtCentre(t *testing.T) {
	for _, size := range []int{2, 10, 100, 101, 2400} {
		g := &Gauss{Q: 0.2}
		peak := -1
		for phase := range size {
			v := g.Next(size)
			if v > 1 {
				t.Fatalf("size %d: phase %d = %f, above 1", size, phase, v)
			}
			if v == 1 {
				peak = phase
			}
		}
		if peak != size/2 {
			t.Fatalf("size %d: peak at phase %d, want %d", size, peak, size/2)
		}
	}
}

func TestGaussSymmetricEdges(t *testing.T) {
	for _, size := range []int{2, 10, 101, 2400} {
		c := size / 2
		first := At(0, size, 0.2)
		last := At(size-1, size, 0.2)
		if first >= 1 || last >= 1 {
			t.Fatalf("size %d: edges should be below 1, got %f and %f", size, first, last)
		}
		for k := 1; c+k < size; k++ {
			if lo, hi := At(c-k, size, 0.2), At(c+k, size, 0.2); math.Abs(lo-hi) > 1e-12 {
				t.Fatalf("size %d: phase %d and %d differ: %f vs %f", size, c-k, c+k, lo, hi)
			}
		}
		if size%2 == 1 && math.Abs(first-last) > 1e-12 {
			t.Fatalf("size %d: edges not symmetric: %f vs %f", size, first, last)
		}
	}
}

func TestGaussDegenerateInputs(t *testing.T) {
	g := &Gauss{Q: 0.2}
	if v := g.Next(0); v != 0 {
		t.Fatalf("zero grain size = %f, want 0", v)
	}
	g.Q = 0
	for i := 0; i < 10; i++ {
		v := g.Next(9)
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("q=0 produced %f", v)
		}
	}
}

func TestGaussPhaseWraps(t *testing.T) {
	g := &Gauss{Q: 0.3}
	var first []float64
	for i := 0; i < 8; i++ {
		first = append(first, g.Next(8))
	}
	if g.Phase() != 0 {
		t.Fatalf("phase = %d after one grain, want 0", g.Phase())
	}
	for i := 0; i < 8; i++ {
		if v := g.Next(8); v != first[i] {
			t.Fatalf("second cycle[%d] = %f, want %f", i, v, first[i])
		}
	}
}

func TestGaussPhaseWrapsWhenGrainShrinks(t *testing.T) {
	g := &Gauss{Q: 0.3}
	for i := 0; i < 50; i++ {
		g.Next(100)
	}
	g.Next(20)
	if g.Phase() != 1 {
		t.Fatalf("phase = %d after shrink, want 1", g.Phase())
	}
}
