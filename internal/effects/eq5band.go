package effects

import (
	"math"
	"sync/atomic"
)

// Crossovers splits the spectrum into the five EQ bands.
var Crossovers = [4]float64{200, 800, 2500, 8000}

// EQ5Band is a five band tone control whose gains may be changed from any
// goroutine while the audio goroutine is processing.
type EQ5Band struct {
	gains  [5]atomic.Uint32 // float32 bits; 1.0 = unity
	alphas [4]float32
	lp     [4]float32
}

// NewEQ5Band creates an EQ with every band at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	for i, f := range Crossovers {
		eq.alphas[i] = onePole(f, sampleRate)
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1))
	}
	return eq
}

// SetGain sets band 0-4. 1.0 = unity, 2.0 = +6dB. Out of range bands are
// ignored; negative gains clamp to 0.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band < 0 || band >= len(eq.gains) {
		return
	}
	if gain < 0 || gain != gain {
		gain = 0
	}
	eq.gains[band].Store(math.Float32bits(gain))
}

func (eq *EQ5Band) Gain(band int) float32 {
	if band < 0 || band >= len(eq.gains) {
		return 1
	}
	return math.Float32frombits(eq.gains[band].Load())
}

// Process filters buf in place. With every band at unity buf passes through
// untouched and the filter state is cleared.
func (eq *EQ5Band) Process(buf []float32) {
	var g [5]float32
	flat := true
	for i := range g {
		g[i] = math.Float32frombits(eq.gains[i].Load())
		flat = flat && g[i] == 1
	}
	if flat {
		eq.Reset()
		return
	}
	for n, x := range buf {
		var out float32
		rem := x
		for i := range eq.lp {
			eq.lp[i] += eq.alphas[i] * (rem - eq.lp[i])
			out += eq.lp[i] * g[i]
			rem -= eq.lp[i]
		}
		buf[n] = out + rem*g[4]
	}
}

func (eq *EQ5Band) Reset() { eq.lp = [4]float32{} }
