package granular

import (
	"log/slog"
	"sync"

	intaudio "github.com/cbegin/granular-go/internal/audio"
	"github.com/cbegin/granular-go/internal/synth"
	"github.com/pkg/errors"
)

// Player streams one granular voice to the audio device.
type Player struct {
	mu        sync.Mutex
	source    Source
	voice     *Voice
	audio     *intaudio.Player
	params    Params
	logger    *slog.Logger
	eventCh   chan Event
	eventChMu sync.Mutex
}

// NewPlayer prepares a voice for src. The audio device is not opened until
// Play. p is sanitized the same way SetParams sanitizes.
func NewPlayer(src Source, p Params, opts ...Option) (*Player, error) {
	cfg := newConfig(opts)
	if len(src.Samples) == 0 {
		return nil, synth.ErrEmptySource
	}
	if src.SampleRate <= 0 {
		return nil, errors.Wrapf(synth.ErrZeroSampleRate, "got %d", src.SampleRate)
	}
	p = synth.Sanitize(p, len(src.Samples), src.SampleRate, 0)
	v, err := newVoice(src, p, cfg)
	if err != nil {
		return nil, err
	}
	pl := &Player{
		source: src,
		voice:  v,
		params: p,
		logger: cfg.logger,
	}
	v.onEvent = pl.sendEvent
	return pl, nil
}

// Play opens the audio device on first use and starts streaming.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		a, err := intaudio.NewPlayer(p.source.SampleRate, p.voice)
		if err != nil {
			return errors.Wrap(err, "granular: open audio")
		}
		p.audio = a
		p.logger.Info("audio started", "sampleRate", p.source.SampleRate, "frames", len(p.source.Samples))
	}
	p.audio.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

// Stop closes the audio device. Play may be called again afterwards.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	p.logger.Info("audio stopped")
	return err
}

// Close stops playback and releases the voice.
func (p *Player) Close() error {
	err := p.Stop()
	p.voice.Close()
	return err
}

// SetParams clamps next the way host controls do, validates it, and queues
// it for the audio goroutine. Rejected parameters leave the voice unchanged.
func (p *Player) SetParams(next Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next = synth.Sanitize(next, len(p.source.Samples), p.source.SampleRate, p.params.TimeStretch)
	if err := synth.Validate(next, len(p.source.Samples), p.source.SampleRate); err != nil {
		p.logger.Warn("parameters rejected", "err", err)
		return err
	}
	p.params = next
	p.voice.Set(next)
	return nil
}

// Params returns the last accepted parameters.
func (p *Player) Params() Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// NoteOn opens the gate with velocity (values below 1 become 1).
func (p *Player) NoteOn(velocity int) error {
	next := p.Params()
	next.Velocity = max(velocity, 1)
	return p.SetParams(next)
}

// NoteOff closes the gate; the envelope releases.
func (p *Player) NoteOff() error {
	next := p.Params()
	next.Velocity = 0
	return p.SetParams(next)
}

func (p *Player) SetVolume(volume float64) { p.voice.SetVolume(volume) }
func (p *Player) Volume() float64          { return p.voice.Volume() }

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band edges: 200Hz, 800Hz, 2.5kHz, 8kHz. Takes effect immediately.
func (p *Player) SetEQBand(band int, gain float32) {
	p.voice.EQ().SetGain(band, gain)
}

func (p *Player) EQBand(band int) float32 {
	return p.voice.EQ().Gain(band)
}

// Source returns the buffer the player was built with. Callers must not
// modify it.
func (p *Player) Source() Source { return p.source }

// Inspect copies the current voice state into v. It returns false, leaving v
// untouched, when the audio goroutine is busy rendering.
func (p *Player) Inspect(v *View) bool { return p.voice.Inspect(v) }

// Err returns the last rendering fault, if any.
func (p *Player) Err() error { return p.voice.Err() }

// PlaybackPosition returns the current output position of the audio driver
// in frames, i.e. what the listener actually hears. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.source.SampleRate))
}

// Watch returns a channel that receives voice events: gate edges, release
// completion, table rebuilds, rejected updates and faults.
//
// The channel is buffered (cap 8) and events are dropped when it is full;
// receive in a goroutine. Only the most recent Watch channel receives events.
func (p *Player) Watch() <-chan Event {
	ch := make(chan Event, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev Event) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}
