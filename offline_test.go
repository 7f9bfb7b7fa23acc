package granular

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"
)

func renderHash(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func TestRenderSamplesRepeatable(t *testing.T) {
	src := SineSweep(testRate, 1, 100, 2000)
	p := quickParams()
	p.SprayMs = 15
	p.TimeStretch = 0.5
	cases := []struct {
		name string
		opts []Option
	}{
		{"dry", nil},
		{"effects", []Option{WithEffects("delay 50,0.3,0.3; reverb 0.5")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := append([]Option{WithSeed(7)}, tc.opts...)
			a, err := RenderSamples(src, p, 0.5, 0.3, opts...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			b, err := RenderSamples(src, p, 0.5, 0.3, opts...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got, want := renderHash(b), renderHash(a); got != want {
				t.Fatalf("renders differ\nwant: %s\ngot:  %s", want, got)
			}
		})
	}
}

func TestRenderSamplesLength(t *testing.T) {
	src := sineSource(4000)
	out, err := RenderSamples(src, quickParams(), 0.25, 0.1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) != 2000 {
		t.Fatalf("len = %d, want 2000", len(out))
	}
	if out[len(out)-1] != 0 {
		t.Fatalf("last sample = %v, want 0 after fade", out[len(out)-1])
	}
}

func TestRenderSamplesReleaseEndsInSilence(t *testing.T) {
	src := sineSource(4000)
	out, err := RenderSamples(src, quickParams(), 0.5, 0.1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	held := out[:800]
	if peak(held) == 0 {
		t.Fatal("no output while the gate is held")
	}
	// 10ms release at 8kHz is 80 samples
	if tail := out[900:]; peak(tail) != 0 {
		t.Fatalf("tail peak = %v, want silence after release", peak(tail))
	}
}

func TestRenderSamplesHoldCoversWholeRender(t *testing.T) {
	out, err := RenderSamples(sineSource(4000), quickParams(), 0.2, 10)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if peak(out[1200:1500]) == 0 {
		t.Fatal("gate should stay open for the whole render")
	}
}

func TestRenderSamplesRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name    string
		src     Source
		seconds float64
	}{
		{"negative length", sineSource(100), -1},
		{"nan length", sineSource(100), math.NaN()},
		{"empty source", Source{SampleRate: testRate}, 1},
		{"zero rate", Source{Samples: make([]float32, 10)}, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := RenderSamples(tc.src, quickParams(), tc.seconds, 0); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFadeOut(t *testing.T) {
	buf := []float64{1, 1, 1, 1, 1, 1}
	fadeOut(buf, 4)
	want := []float64{1, 1, 0.75, 0.5, 0.25, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
	fadeOut(buf[:0], 4)
}

func TestRenderSamplesGain(t *testing.T) {
	p := quickParams()
	p.Velocity = 100
	unity, err := RenderSamples(sineSource(4000), p, 0.25, 0.2, WithSeed(3))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	half, err := RenderSamples(sineSource(4000), p, 0.25, 0.2, WithSeed(3), WithGain(0.5))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if peak(unity) == 0 {
		t.Fatal("unity render is silent")
	}
	for i := range unity {
		if d := math.Abs(float64(half[i]) - 0.5*float64(unity[i])); d > 1e-6 {
			t.Fatalf("sample %d = %v, want half of %v", i, half[i], unity[i])
		}
	}
	if half[len(half)-1] != 0 {
		t.Fatalf("last sample = %v, want 0 after the fade", half[len(half)-1])
	}
}

func BenchmarkRenderSecond(b *testing.B) {
	src := SineSweep(48000, 2, 50, 5000)
	p := DefaultParams()
	p.SprayMs = 10
	for b.Loop() {
		if _, err := RenderSamples(src, p, 1, 0.5); err != nil {
			b.Fatal(err)
		}
	}
}
