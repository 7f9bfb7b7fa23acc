package granular

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
)

var (
	ErrInvalidWAV   = errors.New("granular: invalid WAV file")
	ErrUnknownCodec = errors.New("granular: unsupported file type")
)

// LoadSource decodes a .wav or .mp3 file and mixes it down to mono at its
// native rate.
func LoadSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, errors.Wrap(err, "granular: load source")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		src, err := DecodeWAV(f)
		return src, errors.Wrapf(err, "granular: load %s", path)
	case ".mp3":
		src, err := DecodeMP3(f)
		return src, errors.Wrapf(err, "granular: load %s", path)
	default:
		return Source{}, errors.Wrapf(ErrUnknownCodec, "%s", path)
	}
}

// DecodeWAV reads PCM WAV data of any bit depth and channel count.
func DecodeWAV(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Source{}, ErrInvalidWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return Source{}, errors.Wrap(err, "wav: seek to PCM")
	}
	format := dec.Format()
	bitDepth := int(dec.SampleBitDepth())
	if bitDepth == 0 || format == nil || format.NumChannels <= 0 {
		return Source{}, errors.Wrap(ErrInvalidWAV, "unknown sample format")
	}
	bytesPerSample := (bitDepth-1)/8 + 1
	nsamples := int(dec.PCMLen()) / bytesPerSample
	if nsamples == 0 {
		return Source{}, errors.Wrap(ErrInvalidWAV, "no samples")
	}
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, nsamples),
		SourceBitDepth: bitDepth,
	}
	n, err := dec.PCMBuffer(buf)
	if err != nil {
		return Source{}, errors.Wrap(err, "wav: decode")
	}
	buf.Data = buf.Data[:n]

	floatBuf := buf.AsFloatBuffer()
	factor := math.Pow(2, float64(bitDepth-1))
	var offset float64
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = factor
	}
	interleaved := make([]float32, len(floatBuf.Data))
	for i, v := range floatBuf.Data {
		interleaved[i] = float32((v - offset) / factor)
	}
	return Source{
		Samples:    Mixdown(interleaved, format.NumChannels),
		SampleRate: format.SampleRate,
	}, nil
}

// DecodeMP3 reads an MP3 stream. The decoder always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (Source, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Source{}, errors.Wrap(err, "mp3: new decoder")
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Source{}, errors.Wrap(err, "mp3: decode")
	}
	nsamples := len(raw) / 2
	if nsamples < 2 {
		return Source{}, errors.New("mp3: no samples")
	}
	interleaved := make([]float32, nsamples)
	for i := range interleaved {
		interleaved[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return Source{
		Samples:    Mixdown(interleaved, 2),
		SampleRate: dec.SampleRate(),
	}, nil
}

// Mixdown averages interleaved frames into one channel. A trailing partial
// frame is dropped.
func Mixdown(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return append([]float32(nil), interleaved...)
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	scale := 1 / float32(channels)
	for i := range out {
		var sum float32
		for _, s := range interleaved[i*channels : (i+1)*channels] {
			sum += s
		}
		out[i] = sum * scale
	}
	return out
}

// SineSweep generates an exponential sine sweep from f0 to f1 Hz, a handy
// source when no file is given. The ends are faded over 50ms.
func SineSweep(sampleRate int, seconds, f0, f1 float64) Source {
	frames := int(float64(sampleRate) * seconds)
	samples := make([]float32, max(frames, 0))
	fade := 0.05 * float64(sampleRate)
	var phase float64
	for i := range samples {
		progress := float64(i) / float64(frames)
		freq := f0 * math.Pow(f1/f0, progress)
		phase += 2 * math.Pi * freq / float64(sampleRate)
		env := 1.0
		if pos := float64(i); pos < fade {
			env = pos / fade
		} else if rem := float64(frames - 1 - i); rem < fade {
			env = rem / fade
		}
		samples[i] = float32(0.5 * env * math.Sin(phase))
	}
	return Source{Samples: samples, SampleRate: sampleRate}
}

// Resample converts src to rate with the polyphase anti-aliasing filter
// from algo-dsp. The filter delay is trimmed so the result stays aligned with
// the input, which matters for start positions picked against the waveform.
func Resample(src Source, rate int) (Source, error) {
	if rate == src.SampleRate || len(src.Samples) == 0 {
		return src, nil
	}
	r, err := resample.NewForRates(float64(src.SampleRate), float64(rate))
	if err != nil {
		return Source{}, errors.Wrapf(err, "resample %d Hz to %d Hz", src.SampleRate, rate)
	}
	up, down := r.Ratio()
	want := max((len(src.Samples)*up+down-1)/down, 1)
	delay := (len(r.Prototype()) - 1 + down) / (2 * down)

	in := make([]float64, len(src.Samples)+delay*down/up+r.TapsPerPhase()+1)
	for i, s := range src.Samples {
		in[i] = float64(s)
	}
	y := r.Process(in)
	y = y[min(delay, len(y)):]
	out := make([]float32, want)
	for i := range out[:min(want, len(y))] {
		out[i] = float32(y[i])
	}
	return Source{Samples: out, SampleRate: rate}, nil
}
