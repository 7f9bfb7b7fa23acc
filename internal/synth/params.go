package synth

import (
	"math"

	"github.com/cbegin/granular-go/internal/envelope"
	"github.com/cbegin/granular-go/internal/grain"
	"github.com/pkg/errors"
)

var (
	ErrEmptySource    = errors.New("synth: source buffer is empty")
	ErrZeroSampleRate = errors.New("synth: sample rate must be positive")
	ErrZeroGrainSize  = grain.ErrZeroGrainSize
	ErrClosed         = errors.New("synth: closed")
)

// minStretch is the slowest time stretch the host controls allow before the
// direction flips.
const minStretch = 0.1

// Params is the full control-rate parameter set. Times are milliseconds;
// StartPos is in samples.
type Params struct {
	GrainSizeMs float64
	StartPos    int
	TimeStretch float64 // sign selects direction
	AttackMs    float64
	DecayMs     float64
	Sustain     float64
	ReleaseMs   float64
	GaussQ      float64
	SprayMs     float64
	PitchMul    float64
	MidiPitch   int
	Velocity    int // 0 closes the gate
}

func DefaultParams() Params {
	return Params{
		GrainSizeMs: 50,
		TimeStretch: 1,
		AttackMs:    500,
		DecayMs:     500,
		Sustain:     0.7,
		ReleaseMs:   1000,
		GaussQ:      0.2,
		PitchMul:    1,
		MidiPitch:   48,
	}
}

// Gate reports whether the parameters hold a note on.
func (p Params) Gate() bool { return p.Velocity > 0 }

func (p Params) envelope() envelope.Config {
	return envelope.Config{AttackMs: p.AttackMs, DecayMs: p.DecayMs, Sustain: p.Sustain, ReleaseMs: p.ReleaseMs}
}

// PitchFactor is the signed read rate: time stretch scaled by the pitch
// multiplier and the MIDI pitch relative to C3 (48).
func PitchFactor(p Params) float64 {
	return p.TimeStretch * p.PitchMul * math.Pow(2, float64(p.MidiPitch-48)/12)
}

// GrainSamples converts the grain size to samples at sampleRate.
func GrainSamples(p Params, sampleRate int) int {
	return envelope.SamplesFromMs(p.GrainSizeMs, float64(sampleRate))
}

// Validate checks p against a source of sourceLen samples. It rejects only
// what would otherwise divide by zero or index outside the buffer; range
// clamping is Sanitize's job.
func Validate(p Params, sourceLen, sampleRate int) error {
	if sourceLen <= 0 {
		return ErrEmptySource
	}
	if sampleRate <= 0 {
		return errors.Wrapf(ErrZeroSampleRate, "got %d", sampleRate)
	}
	if g := GrainSamples(p, sampleRate); g <= 0 {
		return errors.Wrapf(ErrZeroGrainSize, "%v ms at %d Hz", p.GrainSizeMs, sampleRate)
	}
	if p.StartPos < 0 || p.StartPos >= sourceLen {
		return errors.Errorf("synth: start position %d outside [0, %d)", p.StartPos, sourceLen)
	}
	for _, f := range [...]struct {
		name string
		v    float64
	}{
		{"grain size", p.GrainSizeMs},
		{"time stretch", p.TimeStretch},
		{"attack", p.AttackMs},
		{"decay", p.DecayMs},
		{"sustain", p.Sustain},
		{"release", p.ReleaseMs},
		{"gauss q", p.GaussQ},
		{"spray", p.SprayMs},
		{"pitch mul", p.PitchMul},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.Errorf("synth: %s is not finite", f.name)
		}
	}
	return nil
}

// Sanitize clamps raw control values the way the host inlets do before they
// reach the engine. prevStretch is the stretch currently in effect; a
// request that reverses direction or drops below 0.1 in magnitude snaps to
// 0.1 in the opposite direction, so playback crawls through zero rather than
// jumping across it. A prevStretch of 0 means there is no previous value.
func Sanitize(p Params, sourceLen, sampleRate int, prevStretch float64) Params {
	if sourceLen > 0 && sampleRate > 0 {
		minMs := 1000 / float64(sampleRate)
		maxMs := float64(sourceLen) * 1000 / float64(sampleRate)
		p.GrainSizeMs = clamp(p.GrainSizeMs, minMs, maxMs)
		if GrainSamples(p, sampleRate) > sourceLen {
			p.GrainSizeMs = math.Floor(maxMs*1000) / 1000
		}
		if p.StartPos < 0 {
			p.StartPos = 0
		}
		if p.StartPos > sourceLen-1 {
			p.StartPos = sourceLen - 1
		}
	}
	p.AttackMs = nonNegative(p.AttackMs)
	p.DecayMs = nonNegative(p.DecayMs)
	p.Sustain = nonNegative(p.Sustain)
	p.ReleaseMs = nonNegative(p.ReleaseMs)
	p.GaussQ = nonNegative(p.GaussQ)
	p.SprayMs = nonNegative(p.SprayMs)
	if p.Velocity < 0 {
		p.Velocity = 0
	}
	if p.MidiPitch < 0 {
		p.MidiPitch = 0
	}

	s := p.TimeStretch
	if math.IsNaN(s) {
		s = 0
	}
	flipped := (prevStretch > 0 && s < 0) || (prevStretch < 0 && s > 0)
	if flipped || math.Abs(s) < minStretch {
		if prevStretch > 0 {
			s = -minStretch
		} else {
			s = minStretch
		}
	}
	p.TimeStretch = s
	return p
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
