package envelope

import (
	"math"

	"github.com/pkg/errors"
)

// ErrSampleRate is returned when an envelope is built without a usable sample rate.
var ErrSampleRate = errors.New("envelope: sample rate must be positive")

type Stage int

const (
	Attack Stage = iota
	Decay
	Sustain
	Release
	Silent
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	case Silent:
		return "silent"
	default:
		return "unknown"
	}
}

// Config holds ADSR timing in milliseconds and the sustain level (0..1).
type Config struct {
	AttackMs  float64
	DecayMs   float64
	Sustain   float64
	ReleaseMs float64
}

// Envelope is a gate-driven ADSR producing one amplitude per sample tick.
type Envelope struct {
	cfg        Config
	sampleRate float64
	attack     int
	decay      int
	release    int
	stage      Stage
	index      int
	peak       float64
}

// New builds an envelope resting in the Silent stage.
func New(cfg Config, sampleRate float64) (*Envelope, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return nil, errors.Wrapf(ErrSampleRate, "got %v", sampleRate)
	}
	e := &Envelope{sampleRate: sampleRate, stage: Silent}
	e.apply(cfg)
	return e, nil
}

// SamplesFromMs converts a duration to a whole number of samples, rounding up.
func SamplesFromMs(ms, sampleRate float64) int {
	if sampleRate <= 0 || ms <= 0 {
		return 0
	}
	return int(math.Ceil(sampleRate / 1000 * ms))
}

func (e *Envelope) apply(cfg Config) {
	e.cfg = cfg
	e.attack = SamplesFromMs(cfg.AttackMs, e.sampleRate)
	e.decay = SamplesFromMs(cfg.DecayMs, e.sampleRate)
	e.release = SamplesFromMs(cfg.ReleaseMs, e.sampleRate)
}

// Reconfigure swaps in new timing while keeping the current stage and
// position so a running note does not click.
func (e *Envelope) Reconfigure(cfg Config) {
	e.apply(cfg)
	if n := e.stageLen(e.stage); n > 0 && e.index >= n {
		e.index = n - 1
	} else if n == 0 {
		e.index = 0
	}
}

func (e *Envelope) stageLen(s Stage) int {
	switch s {
	case Attack:
		return e.attack
	case Decay:
		return e.decay
	case Release:
		return e.release
	default:
		return 0
	}
}

// Step advances the envelope by one sample and returns its amplitude.
// Gate transitions are resolved before the stage value is computed.
func (e *Envelope) Step(gate bool) float64 {
	if gate {
		if e.stage == Release || e.stage == Silent {
			e.enter(Attack)
		}
	} else {
		switch e.stage {
		case Silent:
			return 0
		case Release:
		default:
			e.enter(Release)
		}
	}

	for {
		switch e.stage {
		case Attack:
			if e.attack == 0 {
				e.enter(Decay)
				continue
			}
			v := float64(e.index) / float64(e.attack)
			e.peak = v
			e.index++
			if e.index >= e.attack {
				e.enter(Decay)
			}
			return v
		case Decay:
			if e.decay == 0 {
				e.enter(Sustain)
				continue
			}
			v := 1 + (e.cfg.Sustain-1)*float64(e.index)/float64(e.decay)
			e.peak = v
			e.index++
			if e.index >= e.decay {
				e.enter(Sustain)
			}
			return v
		case Sustain:
			e.peak = e.cfg.Sustain
			return e.cfg.Sustain
		case Release:
			if e.release == 0 {
				e.enter(Silent)
				e.peak = 0
				return 0
			}
			v := e.peak * (1 - float64(e.index)/float64(e.release))
			e.index++
			if e.index >= e.release {
				e.enter(Silent)
				e.peak = 0
			}
			return v
		default:
			return 0
		}
	}
}

func (e *Envelope) enter(s Stage) {
	e.stage = s
	e.index = 0
}

func (e *Envelope) Stage() Stage   { return e.stage }
func (e *Envelope) Index() int     { return e.index }
func (e *Envelope) Peak() float64  { return e.peak }
func (e *Envelope) Config() Config { return e.cfg }

// Samples returns the attack, decay and release lengths in samples.
func (e *Envelope) Samples() (attack, decay, release int) {
	return e.attack, e.decay, e.release
}
