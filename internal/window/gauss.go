// Package window provides the Gaussian amplitude contour shared by all
// active grains. The phase follows the configured grain length, not any
// individual grain's cursor.
package window

import "math"

// Gauss is a phase-locked Gaussian window. Q controls the width; smaller
// values give a sharper bell.
type Gauss struct {
	Q     float64
	phase int
}

// Next returns the window value for the current phase and advances it.
// A zero grain size or non-positive Q yields 0.
func (g *Gauss) Next(grainSize int) float64 {
	if grainSize <= 0 {
		return 0
	}
	if g.phase >= grainSize {
		g.phase = 0
	}
	v := At(g.phase, grainSize, g.Q)
	g.phase++
	if g.phase >= grainSize {
		g.phase = 0
	}
	return v
}

// Phase reports the phase that the next call to Next will use.
func (g *Gauss) Phase() int { return g.phase }

// Reset rewinds the phase to the start of a grain.
func (g *Gauss) Reset() { g.phase = 0 }

// At evaluates the window at phase for a grain of size samples. The peak
// sits on phase size/2, so even sizes reach 1.0 and lean one sample early.
func At(phase, size int, q float64) float64 {
	if size <= 0 || q <= 0 || math.IsNaN(q) {
		return 0
	}
	n := float64(size)
	d := float64(phase - size/2)
	return math.Exp(-(d * d) / (q * n * n))
}
