package granular

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// WriteWAV encodes mono samples as a 16-bit PCM WAV stream. Samples outside
// [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.Errorf("wav: sample rate %d", sampleRate)
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		intBuf.Data[i] = int(max(-1, min(1, s)) * 32767)
	}
	if err := enc.Write(intBuf); err != nil {
		return errors.Wrap(err, "wav: write")
	}
	return errors.Wrap(enc.Close(), "wav: close")
}

// SaveWAV writes samples to a new file at path.
func SaveWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "wav: create")
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "wav: close file")
}
