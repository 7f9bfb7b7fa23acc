package granular

import (
	"math"

	"github.com/cbegin/granular-go/internal/synth"
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/pkg/errors"
)

// DefaultVelocity is used by RenderSamples when p carries no velocity.
const DefaultVelocity = 100

const fadeMs = 10

// RenderSamples renders seconds of mono output offline. The gate is held
// open for hold seconds and then released, so the tail carries the release
// stage. If p.Velocity is zero DefaultVelocity is used while the gate is
// held. The last few milliseconds are faded out so truncated releases do not
// click.
func RenderSamples(src Source, p Params, seconds, hold float64, opts ...Option) ([]float32, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, errors.Errorf("granular: render length %v", seconds)
	}
	if len(src.Samples) == 0 {
		return nil, synth.ErrEmptySource
	}
	if src.SampleRate <= 0 {
		return nil, errors.Wrapf(synth.ErrZeroSampleRate, "got %d", src.SampleRate)
	}
	cfg := newConfig(opts)
	p = synth.Sanitize(p, len(src.Samples), src.SampleRate, 0)
	if p.Velocity == 0 {
		p.Velocity = DefaultVelocity
	}
	v, err := newVoice(src, p, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "granular: render")
	}
	defer v.Close()

	frames := int(float64(src.SampleRate) * seconds)
	held := 0
	if hold > 0 {
		held = min(int(float64(src.SampleRate)*hold), frames)
	}
	// The voice renders float32 blocks; mastering runs on a float64 mix.
	master := make([]float64, frames)
	block := make([]float32, cfg.blockSize)
	for pos := 0; pos < frames; {
		if pos == held {
			p.Velocity = 0
			v.Set(p)
		}
		end := min(pos+len(block), frames)
		if pos < held {
			end = min(end, held)
		}
		buf := block[:end-pos]
		v.Process(buf)
		for i, s := range buf {
			master[pos+i] = float64(s)
		}
		pos = end
	}
	if err := v.Err(); err != nil {
		cfg.logger.Warn("render fault", "err", err)
	}

	fadeOut(master, fadeLen(src.SampleRate))
	if cfg.gain != 1 {
		vecmath.ScaleBlockInPlace(master, cfg.gain)
	}
	if pk := vecmath.MaxAbs(master); pk > 1 {
		cfg.logger.Warn("render clips", "peak", pk)
	}
	out := make([]float32, frames)
	for i, s := range master {
		out[i] = float32(s)
	}
	return out, nil
}

func fadeLen(sampleRate int) int {
	return sampleRate * fadeMs / 1000
}

// fadeOut applies a linear ramp to the last n samples of buf.
func fadeOut(buf []float64, n int) {
	n = min(n, len(buf))
	if n <= 0 {
		return
	}
	ramp := make([]float64, n)
	for i := range ramp {
		ramp[i] = float64(n-1-i) / float64(n)
	}
	vecmath.MulBlockInPlace(buf[len(buf)-n:], ramp)
}
