// Package effects holds the mono post-processing applied to a rendered voice
// block before it is sent to the output.
package effects

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Effector processes a mono block in place.
type Effector interface {
	Process(buf []float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(buf []float32) {
	for _, e := range c.effects {
		e.Process(buf)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Parse builds a chain from a definition such as
//
//	delay 250,0.4,0.3; reverb 0.6
//
// Each stage is a name followed by optional comma separated numbers; missing
// numbers take the effect's defaults. Supported names are delay, reverb,
// comp (compressor), drive (dist, distortion) and eq. An empty definition
// returns a nil chain.
func Parse(def string, sampleRate int) (*Chain, error) {
	if sampleRate <= 0 {
		return nil, errors.Errorf("effects: sample rate %d", sampleRate)
	}
	var chain *Chain
	for _, stage := range strings.Split(def, ";") {
		stage = strings.TrimSpace(stage)
		if stage == "" {
			continue
		}
		name, rest, _ := strings.Cut(stage, " ")
		var params []float64
		for _, f := range strings.Split(rest, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "effects: %s parameter %q", name, f)
			}
			params = append(params, v)
		}
		e, err := create(strings.ToLower(name), params, sampleRate)
		if err != nil {
			return nil, err
		}
		if chain == nil {
			chain = NewChain()
		}
		chain.Add(e)
	}
	return chain, nil
}

func create(name string, params []float64, sampleRate int) (Effector, error) {
	param := func(idx int, def float64) float32 {
		if idx < len(params) {
			return float32(params[idx])
		}
		return float32(def)
	}
	switch name {
	case "delay":
		return NewDelay(sampleRate,
			float64(param(0, 250)), // delay ms
			param(1, 0.4),          // feedback
			param(2, 0.3),          // wet
			param(3, 0.2),          // damping
		), nil
	case "reverb":
		return NewReverb(sampleRate,
			param(0, 0.5),  // room size
			param(1, 0.7),  // feedback
			param(2, 0.25), // wet
			param(3, 0.3),  // damping
		), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate,
			param(0, -18), // threshold dB
			param(1, 4),   // ratio
			param(2, 5),   // attack ms
			param(3, 120), // release ms
			param(4, 4),   // makeup dB
		), nil
	case "drive", "dist", "distortion":
		return NewDrive(sampleRate,
			param(0, 3),    // pre gain
			param(1, 0.6),  // post gain
			param(2, 6000), // lowpass cutoff Hz
		), nil
	case "eq":
		eq := NewEQ5Band(sampleRate)
		for band := 0; band < len(params) && band < 5; band++ {
			eq.SetGain(band, float32(params[band]))
		}
		return eq, nil
	}
	return nil, errors.Errorf("effects: unknown effect %q", name)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// onePole returns the smoothing coefficient of a one-pole lowpass at cutoff.
func onePole(cutoff float64, sampleRate int) float32 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	dt := 1.0 / float64(sampleRate)
	return float32(dt / (rc + dt))
}
