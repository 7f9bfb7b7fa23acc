package granular

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	src := sineSource(1000)
	if err := SaveWAV(path, src.Samples, src.SampleRate); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSource(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SampleRate != testRate {
		t.Fatalf("sample rate = %d, want %d", got.SampleRate, testRate)
	}
	if len(got.Samples) != len(src.Samples) {
		t.Fatalf("len = %d, want %d", len(got.Samples), len(src.Samples))
	}
	for i, want := range src.Samples {
		if d := math.Abs(float64(got.Samples[i] - want)); d > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, got.Samples[i], want)
		}
	}
}

func TestDecodeWAVMixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 22050, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 22050},
		Data:           []int{16384, 0, 16384, -16384, -8192, -8192},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	src, err := DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []float32{0.25, 0, -0.25}
	if src.SampleRate != 22050 || len(src.Samples) != len(want) {
		t.Fatalf("got %d Hz, %d frames", src.SampleRate, len(src.Samples))
	}
	for i := range want {
		if src.Samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", src.Samples, want)
		}
	}
}

func TestLoadSourceErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSource(junk); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("junk wav err = %v, want ErrInvalidWAV", err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSource(txt); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("txt err = %v, want ErrUnknownCodec", err)
	}
	if _, err := LoadSource(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := DecodeMP3(bytes.NewReader([]byte("no frames here"))); err == nil {
		t.Fatal("expected error for junk mp3")
	}
}

func TestMixdown(t *testing.T) {
	for _, tc := range []struct {
		name     string
		in       []float32
		channels int
		want     []float32
	}{
		{"mono copy", []float32{1, 2, 3}, 1, []float32{1, 2, 3}},
		{"stereo", []float32{1, 0, 0.5, 0.5}, 2, []float32{0.5, 0.5}},
		{"partial frame dropped", []float32{1, 1, 1, 1, 1}, 2, []float32{1, 1}},
		{"quad", []float32{1, 1, 1, 1}, 4, []float32{1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Mixdown(tc.in, tc.channels)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestSineSweep(t *testing.T) {
	src := SineSweep(testRate, 2, 50, 1000)
	if src.SampleRate != testRate || len(src.Samples) != 2*testRate {
		t.Fatalf("got %d Hz, %d samples", src.SampleRate, len(src.Samples))
	}
	if src.Samples[0] != 0 || src.Samples[len(src.Samples)-1] != 0 {
		t.Fatal("sweep ends should be faded to zero")
	}
	if p := peak(src.Samples); p > 0.5 || p < 0.45 {
		t.Fatalf("peak = %v, want just under 0.5", p)
	}
}

func TestResample(t *testing.T) {
	const in = 8000
	tone := make([]float32, in/2)
	for i := range tone {
		tone[i] = float32(0.5 * math.Sin(2*math.Pi*50*float64(i)/in))
	}
	src := Source{Samples: tone, SampleRate: in}

	for _, rate := range []int{16000, 4000} {
		got, err := Resample(src, rate)
		if err != nil {
			t.Fatalf("%d Hz: %v", rate, err)
		}
		want := len(tone) * rate / in
		if got.SampleRate != rate || len(got.Samples) != want {
			t.Fatalf("%d Hz: got %d samples at %d Hz, want %d", rate, len(got.Samples), got.SampleRate, want)
		}
		// Edges see the zero padding through the filter.
		for j := 100; j < want-100; j++ {
			ref := 0.5 * math.Sin(2*math.Pi*50*float64(j)/float64(rate))
			if d := math.Abs(float64(got.Samples[j]) - ref); d > 0.02 {
				t.Fatalf("%d Hz: sample %d = %f, want %f", rate, j, got.Samples[j], ref)
			}
		}
	}

	same, err := Resample(src, in)
	if err != nil || &same.Samples[0] != &src.Samples[0] {
		t.Fatalf("matching rate should return the source unchanged (err %v)", err)
	}
	if _, err := Resample(src, 0); err == nil {
		t.Fatal("expected an error for a zero target rate")
	}
}
