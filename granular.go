// Package granular is a real-time granular sampler. A Player streams a single
// voice built from a mono source buffer to the audio device; RenderSamples
// runs the same voice offline.
package granular

import (
	"log/slog"
	"math"

	"github.com/cbegin/granular-go/internal/synth"
)

// Params is the control-rate parameter set of a voice.
type Params = synth.Params

// Source is a mono sample buffer and its sample rate.
type Source = synth.Source

// View is a snapshot of a voice's grain table and position for displays.
type View = synth.View

func DefaultParams() Params { return synth.DefaultParams() }

// PitchFactor returns the signed read rate p produces.
func PitchFactor(p Params) float64 { return synth.PitchFactor(p) }

const defaultBlockSize = 256

type Option func(*config)

type config struct {
	logger    *slog.Logger
	seed      int64
	effects   string
	sampleTap func([]float32)
	blockSize int
	gain      float64
}

func defaultConfig() config {
	return config{
		logger:    slog.New(slog.DiscardHandler),
		blockSize: defaultBlockSize,
		gain:      1,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger used for control-rate events. Nothing is
// logged from the audio goroutine.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSeed seeds the spray generator so renders are repeatable.
func WithSeed(seed int64) Option {
	return func(cfg *config) {
		cfg.seed = seed
	}
}

// WithEffects installs a post-processing chain, for example
// "delay 250,0.4,0.3; reverb 0.6". See effects.Parse for the syntax.
func WithEffects(def string) Option {
	return func(cfg *config) {
		cfg.effects = def
	}
}

// WithSampleTap installs a callback invoked with each rendered mono block.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *config) {
		cfg.sampleTap = tap
	}
}

// WithBlockSize sets how many frames are rendered between parameter
// updates. Values below 1 keep the default of 256.
func WithBlockSize(frames int) Option {
	return func(cfg *config) {
		if frames > 0 {
			cfg.blockSize = frames
		}
	}
}

// WithGain scales offline renders after the fade-out. Live players use
// SetVolume instead. Negative or NaN gains render silence.
func WithGain(gain float64) Option {
	return func(cfg *config) {
		if gain < 0 || math.IsNaN(gain) {
			gain = 0
		}
		cfg.gain = gain
	}
}
