package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	granular "github.com/cbegin/granular-go"
	"github.com/cbegin/granular-go/internal/analysis"
)

func main() {
	var (
		inPath      = flag.String("in", "", "source file (.wav or .mp3); a sine sweep when empty")
		sampleRate  = flag.Int("sample-rate", 48000, "sample rate of the generated sweep")
		grainMs     = flag.Float64("grain", 50, "grain size in ms")
		start       = flag.Int("start", 0, "start position in samples")
		stretch     = flag.Float64("stretch", 1, "time stretch; negative plays in reverse")
		attack      = flag.Float64("attack", 500, "attack in ms")
		decay       = flag.Float64("decay", 500, "decay in ms")
		sustain     = flag.Float64("sustain", 0.7, "sustain level")
		release     = flag.Float64("release", 1000, "release in ms")
		q           = flag.Float64("q", 0.2, "gaussian window width")
		spray       = flag.Float64("spray", 0, "spray in ms")
		pitchMul    = flag.Float64("pitch-mul", 1, "pitch multiplier")
		midi        = flag.Int("midi", 48, "MIDI pitch (48 = unity)")
		velocity    = flag.Int("velocity", 100, "note velocity")
		hold        = flag.Float64("hold", 2, "seconds to hold the gate")
		seconds     = flag.Float64("seconds", 4, "render length for -out and -analyze")
		outPath     = flag.String("out", "", "render offline to this WAV file instead of playing")
		analyze     = flag.Bool("analyze", false, "print level and spectrum statistics of the render")
		fx          = flag.String("fx", "", `effect chain, e.g. "delay 250,0.4,0.3; reverb 0.6"`)
		volume      = flag.Float64("volume", 1.0, "master volume scalar")
		seed        = flag.Int64("seed", 0, "spray random seed")
		interactive = flag.Bool("interactive", false, "control the voice from the keyboard")
		verbose     = flag.Bool("v", false, "log control events to stderr")
	)
	flag.Parse()

	src, err := loadSource(*inPath, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	p := granular.Params{
		GrainSizeMs: *grainMs,
		StartPos:    *start,
		TimeStretch: *stretch,
		AttackMs:    *attack,
		DecayMs:     *decay,
		Sustain:     *sustain,
		ReleaseMs:   *release,
		GaussQ:      *q,
		SprayMs:     *spray,
		PitchMul:    *pitchMul,
		MidiPitch:   *midi,
	}
	opts := []granular.Option{granular.WithSeed(*seed), granular.WithEffects(*fx)}
	if *verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, granular.WithLogger(logger))
	}

	if *outPath != "" || *analyze {
		p.Velocity = *velocity
		samples, err := granular.RenderSamples(src, p, *seconds, *hold, append(opts, granular.WithGain(*volume))...)
		if err != nil {
			log.Fatal(err)
		}
		if *outPath != "" {
			if err := granular.SaveWAV(*outPath, samples, src.SampleRate); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("wrote %s (%d frames at %d Hz)\n", *outPath, len(samples), src.SampleRate)
		}
		if *analyze {
			if err := printReport(samples, src.SampleRate); err != nil {
				log.Fatal(err)
			}
		}
		return
	}

	pl, err := granular.NewPlayer(src, p, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()
	pl.SetVolume(*volume)
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}
	if *interactive {
		if err := runInteractive(pl, *velocity); err != nil {
			log.Fatal(err)
		}
		return
	}
	playOnce(pl, *velocity, *hold)
}

func loadSource(path string, sampleRate int) (granular.Source, error) {
	if path == "" {
		return granular.SineSweep(sampleRate, 4, 110, 3520), nil
	}
	return granular.LoadSource(path)
}

// playOnce holds one note and waits for its release to finish.
func playOnce(pl *granular.Player, velocity int, hold float64) {
	ch := pl.Watch()
	if err := pl.NoteOn(velocity); err != nil {
		log.Fatal(err)
	}
	time.Sleep(time.Duration(hold * float64(time.Second)))
	if err := pl.NoteOff(); err != nil {
		log.Fatal(err)
	}
	// bound the wait in case the release event was dropped
	release := time.Duration(pl.Params().ReleaseMs*float64(time.Millisecond)) + time.Second
	timeout := time.After(release)
	for {
		select {
		case event := <-ch:
			switch event.Kind {
			case granular.EventSilent:
				fmt.Println("playback completed")
				return
			case granular.EventFault:
				fmt.Printf("fault: %v\n", event.Err)
			}
		case <-timeout:
			return
		}
	}
}

func printReport(samples []float32, sampleRate int) error {
	a, err := analysis.New(4096, sampleRate)
	if err != nil {
		return err
	}
	r, err := a.Analyze(samples)
	if err != nil {
		return err
	}
	fmt.Printf("frames:    %d (%d analysis windows)\n", len(samples), r.Frames)
	fmt.Printf("peak:      %.1f dBFS\n", r.PeakDB())
	fmt.Printf("rms:       %.1f dBFS\n", r.RMSDB())
	fmt.Printf("centroid:  %.0f Hz\n", r.CentroidHz)
	fmt.Printf("dominant:  %.0f Hz\n", r.DominantHz)
	return nil
}
