package granular

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cbegin/granular-go/internal/effects"
	"github.com/cbegin/granular-go/internal/envelope"
	"github.com/cbegin/granular-go/internal/synth"
)

type EventKind int

const (
	EventGateOn EventKind = iota
	EventGateOff
	EventSilent   // release finished
	EventRebuilt  // grain table replaced
	EventFault    // a block was cut short by a read outside the source
	EventRejected // a queued parameter set failed validation
)

func (k EventKind) String() string {
	switch k {
	case EventGateOn:
		return "gate-on"
	case EventGateOff:
		return "gate-off"
	case EventSilent:
		return "silent"
	case EventRebuilt:
		return "rebuilt"
	case EventFault:
		return "fault"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event is delivered through Player.Watch.
type Event struct {
	Kind     EventKind
	Rebuilds int   // table builds so far, for EventRebuilt
	Err      error // for EventFault and EventRejected
}

// Voice couples a synth with a single-slot parameter mailbox. Any goroutine
// may call Set; the newest parameters are applied at the next block
// boundary inside Process, so the grain table is never swapped mid-block.
// Control goroutines never block on mu: they read the atomics published by
// the render path or give up through TryLock.
type Voice struct {
	pending   atomic.Pointer[Params]
	volume    atomic.Uint64 // float64 bits
	closing   atomic.Bool
	silent    atomic.Bool
	lastFault atomic.Pointer[error]
	mu        sync.Mutex
	synth     *synth.Synth
	effects   *effects.Chain
	eq        *effects.EQ5Band
	blockSize int
	sampleTap func([]float32)
	onEvent   func(Event)

	gate     bool
	stage    envelope.Stage
	rebuilds int
	fault    error
}

func newVoice(src Source, p Params, cfg config) (*Voice, error) {
	s, err := synth.New(src, p, synth.WithSeed(cfg.seed))
	if err != nil {
		return nil, err
	}
	chain, err := effects.Parse(cfg.effects, src.SampleRate)
	if err != nil {
		return nil, err
	}
	v := &Voice{
		synth:     s,
		effects:   chain,
		eq:        effects.NewEQ5Band(src.SampleRate),
		blockSize: cfg.blockSize,
		sampleTap: cfg.sampleTap,
		stage:     envelope.Silent,
		rebuilds:  s.Rebuilds(),
	}
	v.volume.Store(math.Float64bits(1))
	v.silent.Store(true)
	return v, nil
}

// NewVoice builds a standalone voice. Most callers want NewPlayer or
// RenderSamples instead.
func NewVoice(src Source, p Params, opts ...Option) (*Voice, error) {
	return newVoice(src, p, newConfig(opts))
}

// Set queues p for the next block. A later Set before that block replaces
// it.
func (v *Voice) Set(p Params) {
	v.pending.Store(&p)
}

func (v *Voice) SetVolume(volume float64) {
	if volume < 0 || math.IsNaN(volume) {
		volume = 0
	}
	v.volume.Store(math.Float64bits(volume))
}

func (v *Voice) Volume() float64 { return math.Float64frombits(v.volume.Load()) }

// EQ exposes the master tone control; its gains may be set from any
// goroutine.
func (v *Voice) EQ() *effects.EQ5Band { return v.eq }

// Process renders len(dst) mono samples, applying queued parameters at each
// block boundary.
func (v *Voice) Process(dst []float32) {
	for len(dst) > 0 {
		n := min(v.blockSize, len(dst))
		v.processBlock(dst[:n])
		dst = dst[n:]
	}
}

func (v *Voice) processBlock(dst []float32) {
	v.mu.Lock()
	if v.closing.Load() {
		if !v.synth.Closed() {
			v.synth.Close()
		}
		v.silent.Store(true)
		v.mu.Unlock()
		clear(dst)
		return
	}
	if p := v.pending.Swap(nil); p != nil {
		if err := v.synth.Update(*p); err != nil {
			v.emit(Event{Kind: EventRejected, Err: err})
		}
	}
	v.synth.Process(dst)
	v.track()
	v.mu.Unlock()

	if v.effects != nil {
		v.effects.Process(dst)
	}
	v.eq.Process(dst)
	if g := float32(v.Volume()); g != 1 {
		for i := range dst {
			dst[i] *= g
		}
	}
	if v.sampleTap != nil {
		v.sampleTap(dst)
	}
}

// track compares the synth against the previous block and emits edges.
func (v *Voice) track() {
	if gate := v.synth.Params().Gate(); gate != v.gate {
		v.gate = gate
		if gate {
			v.emit(Event{Kind: EventGateOn})
		} else {
			v.emit(Event{Kind: EventGateOff})
		}
	}
	if st := v.synth.Stage(); st != v.stage {
		if st == envelope.Silent {
			v.emit(Event{Kind: EventSilent})
		}
		v.stage = st
		v.silent.Store(st == envelope.Silent)
	}
	if r := v.synth.Rebuilds(); r != v.rebuilds {
		v.rebuilds = r
		v.emit(Event{Kind: EventRebuilt, Rebuilds: r})
	}
	if err := v.synth.Err(); err != nil && err != v.fault {
		v.fault = err
		v.lastFault.Store(&err)
		v.emit(Event{Kind: EventFault, Err: err})
	}
}

func (v *Voice) emit(ev Event) {
	if v.onEvent != nil {
		v.onEvent(ev)
	}
}

// Inspect copies the voice state into view. It reports false without
// waiting when the audio goroutine holds the voice.
func (v *Voice) Inspect(view *View) bool {
	if !v.mu.TryLock() {
		return false
	}
	defer v.mu.Unlock()
	v.synth.Inspect(view)
	return true
}

// Err returns the last fault recovered while rendering.
func (v *Voice) Err() error {
	if err := v.lastFault.Load(); err != nil {
		return *err
	}
	return nil
}

// Silent reports whether the envelope has finished releasing.
func (v *Voice) Silent() bool { return v.silent.Load() }

// Close stops the voice. When a block is rendering, the synth is released
// at the start of the next one instead of waiting for it.
func (v *Voice) Close() {
	v.closing.Store(true)
	v.silent.Store(true)
	if v.mu.TryLock() {
		v.synth.Close()
		v.mu.Unlock()
	}
}
