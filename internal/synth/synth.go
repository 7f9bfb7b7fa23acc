// Package synth composes the grain table, playback position, window and
// envelope into a single mono granular voice rendered one block at a time.
package synth

import (
	"github.com/cbegin/granular-go/internal/envelope"
	"github.com/cbegin/granular-go/internal/grain"
	"github.com/cbegin/granular-go/internal/position"
	"github.com/cbegin/granular-go/internal/spray"
	"github.com/cbegin/granular-go/internal/window"
	"github.com/pkg/errors"
)

// Source is a mono sample buffer and its rate.
type Source struct {
	Samples    []float32
	SampleRate int
}

type Option func(*config)

type config struct {
	seed int64
}

// WithSeed seeds the spray generator. Voices with the same seed, source and
// parameter history render identical output.
func WithSeed(seed int64) Option {
	return func(cfg *config) {
		cfg.seed = seed
	}
}

// Synth is a single granular voice. It is not safe for concurrent use:
// Update and Process must be called from the same goroutine, or serialized
// by the caller.
type Synth struct {
	src        []float32
	sampleRate int
	params     Params
	grainSize  int
	pitch      float64
	table      *grain.Table
	head       int
	tracker    *position.Tracker
	spray      *spray.Source
	window     window.Gauss
	env        *envelope.Envelope
	rebuilds   int
	err        error
	closed     bool
}

// View is a snapshot of the voice for displays.
type View struct {
	Spans        []grain.Span
	Head         int
	Position     int
	CycleEnd     int
	SprayedStart int
	Stage        envelope.Stage
	GrainSize    int
	Pitch        float64
	Reverse      bool
	Rebuilds     int
	Params       Params
}

// New copies src and builds the initial grain table. The envelope starts
// silent; nothing sounds until Params.Velocity is nonzero.
func New(src Source, p Params, opts ...Option) (*Synth, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := Validate(p, len(src.Samples), src.SampleRate); err != nil {
		return nil, errors.Wrap(err, "synth: new")
	}
	env, err := envelope.New(p.envelope(), float64(src.SampleRate))
	if err != nil {
		return nil, errors.Wrap(err, "synth: new")
	}

	s := &Synth{
		src:        append([]float32(nil), src.Samples...),
		sampleRate: src.SampleRate,
		spray:      spray.New(cfg.seed),
		window:     window.Gauss{Q: p.GaussQ},
		env:        env,
	}
	s.spray.SetAmount(s.msToSamples(p.SprayMs))
	s.tracker = position.New(len(s.src), s.spray)

	g := GrainSamples(p, s.sampleRate)
	pitch := PitchFactor(p)
	table, head, err := s.build(g, p.StartPos, pitch)
	if err != nil {
		return nil, errors.Wrap(err, "synth: new")
	}
	s.params = p
	s.commit(table, head, g, p.StartPos, pitch)
	return s, nil
}

func (s *Synth) msToSamples(ms float64) int {
	return envelope.SamplesFromMs(ms, float64(s.sampleRate))
}

// build creates the table for a prospective layout without touching the
// running one. A zero pitch yields no table.
func (s *Synth) build(grainSize, start int, pitch float64) (*grain.Table, int, error) {
	if pitch == 0 {
		return nil, 0, nil
	}
	n, err := grain.NumGrains(len(s.src), grainSize, pitch)
	if err != nil {
		return nil, 0, err
	}
	sprayed := position.Normalize(start+s.tracker.Offset(), len(s.src))
	head := grain.HeadIndex(float64(sprayed), pitch, grainSize, n)
	table, err := grain.Build(grain.Layout{
		SourceLen:    len(s.src),
		GrainSize:    grainSize,
		Pitch:        pitch,
		SprayedStart: float64(sprayed),
		Head:         head,
	})
	if err != nil {
		return nil, 0, err
	}
	return table, head, nil
}

func (s *Synth) commit(table *grain.Table, head, grainSize, start int, pitch float64) {
	s.table = table
	s.head = head
	s.grainSize = grainSize
	s.pitch = pitch
	s.tracker.SetStart(start)
	s.tracker.SetGrainSize(grainSize)
	s.tracker.Reset()
	s.rebuilds++
}

func needsRebuild(old, p Params) bool {
	return old.GrainSizeMs != p.GrainSizeMs ||
		old.StartPos != p.StartPos ||
		old.TimeStretch != p.TimeStretch ||
		old.PitchMul != p.PitchMul ||
		old.MidiPitch != p.MidiPitch
}

// Update applies a new parameter set. Layout changes build a replacement
// table and swap it in; envelope changes keep the current stage. On error
// the voice keeps its previous state.
func (s *Synth) Update(p Params) error {
	if s.closed {
		return ErrClosed
	}
	if err := Validate(p, len(s.src), s.sampleRate); err != nil {
		return errors.Wrap(err, "synth: update")
	}
	if needsRebuild(s.params, p) {
		g := GrainSamples(p, s.sampleRate)
		pitch := PitchFactor(p)
		table, head, err := s.build(g, p.StartPos, pitch)
		if err != nil {
			return errors.Wrap(err, "synth: update")
		}
		s.commit(table, head, g, p.StartPos, pitch)
	}
	if p.envelope() != s.params.envelope() {
		s.env.Reconfigure(p.envelope())
	}
	s.window.Q = p.GaussQ
	s.spray.SetAmount(s.msToSamples(p.SprayMs))
	s.params = p
	return nil
}

// Process renders len(out) mono samples. It does not allocate. A read
// outside the source buffer silences the rest of the block and is reported
// by Err.
func (s *Synth) Process(out []float32) {
	if s.closed {
		clear(out)
		return
	}
	i := 0
	defer func() {
		if r := recover(); r != nil {
			be, ok := r.(*grain.BoundsError)
			if !ok {
				panic(r)
			}
			s.err = errors.Wrap(be, "synth: process")
			clear(out[i:])
		}
	}()

	gate := s.params.Gate()
	for ; i < len(out); i++ {
		if s.tracker.Advance(gate) && s.table != nil {
			s.head = grain.HeadIndex(float64(s.tracker.SprayedStart()), s.pitch, s.grainSize, s.table.Len())
		}
		var acc float64
		if s.table != nil {
			acc = s.table.Schedule(s.src, s.head, s.tracker)
		}
		acc *= s.window.Next(s.grainSize)
		acc *= s.env.Step(gate)
		out[i] = float32(acc)
	}
}

// Close releases the buffer copy, the table and the envelope. Process
// writes silence afterwards.
func (s *Synth) Close() {
	s.src = nil
	s.table = nil
	s.env = nil
	s.closed = true
}

// Err returns the last fault recovered by Process, if any.
func (s *Synth) Err() error { return s.err }

func (s *Synth) Params() Params  { return s.params }
func (s *Synth) SampleRate() int { return s.sampleRate }
func (s *Synth) SourceLen() int  { return len(s.src) }
func (s *Synth) Rebuilds() int   { return s.rebuilds }
func (s *Synth) Closed() bool    { return s.closed }

// Stage reports the envelope stage, or Silent once closed.
func (s *Synth) Stage() envelope.Stage {
	if s.env == nil {
		return envelope.Silent
	}
	return s.env.Stage()
}

// Inspect fills v with the current state. v.Spans is reused, so repeated
// calls with the same view do not allocate once it has grown.
func (s *Synth) Inspect(v *View) {
	v.Spans = v.Spans[:0]
	if s.table != nil {
		v.Spans = s.table.Spans(v.Spans)
		v.Reverse = s.table.Reverse()
	} else {
		v.Reverse = s.pitch < 0
	}
	v.Head = s.head
	v.Position = s.tracker.Position()
	v.CycleEnd = s.tracker.CycleEnd()
	v.SprayedStart = s.tracker.SprayedStart()
	v.Stage = s.Stage()
	v.GrainSize = s.grainSize
	v.Pitch = s.pitch
	v.Rebuilds = s.rebuilds
	v.Params = s.params
}
