// Package analysis measures rendered audio: levels, a windowed magnitude
// spectrum and the spectral centroid. It feeds the UI spectrum view and the
// command line report.
package analysis

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/pkg/errors"
)

// FloorDB is the level reported for empty bins.
const FloorDB = -130.0

// Analyzer computes magnitude spectra of fixed size. It reuses its buffers
// and is not safe for concurrent use.
type Analyzer struct {
	size       int
	sampleRate int
	plan       *algofft.Plan[complex128]
	window     []float64
	windowGain float64
	frame      []float64
	in, out    []complex128
	re, im     []float64
	mag        []float64
}

// New returns an analyzer for frames of size samples, which must be a power
// of two of at least 16.
func New(size, sampleRate int) (*Analyzer, error) {
	if size < 16 || size&(size-1) != 0 {
		return nil, errors.Errorf("analysis: fft size %d is not a power of two >= 16", size)
	}
	if sampleRate <= 0 {
		return nil, errors.Errorf("analysis: sample rate %d", sampleRate)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, errors.Wrap(err, "analysis: fft plan")
	}
	win, err := window.Hann(size, window.WithPeriodic())
	if err != nil {
		return nil, errors.Wrap(err, "analysis: window")
	}
	var sum float64
	for _, w := range win {
		sum += w
	}
	bins := size/2 + 1
	return &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		plan:       plan,
		window:     win,
		windowGain: sum / float64(size),
		frame:      make([]float64, size),
		in:         make([]complex128, size),
		out:        make([]complex128, size),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
	}, nil
}

func (a *Analyzer) Size() int       { return a.size }
func (a *Analyzer) Bins() int       { return a.size/2 + 1 }
func (a *Analyzer) SampleRate() int { return a.sampleRate }

// BinHz is the frequency spacing between bins.
func (a *Analyzer) BinHz() float64 { return float64(a.sampleRate) / float64(a.size) }

// Magnitudes windows the last Size samples of samples (zero padded when
// shorter) and returns the linear magnitude of bins 0..Size/2, scaled so a
// full-scale sine centred on a bin reads 1. The slice is owned by the
// analyzer and overwritten by the next call.
func (a *Analyzer) Magnitudes(samples []float32) ([]float64, error) {
	clear(a.frame)
	if len(samples) > a.size {
		samples = samples[len(samples)-a.size:]
	}
	for i, s := range samples {
		a.frame[i] = float64(s)
	}
	vecmath.MulBlockInPlace(a.frame, a.window)
	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return nil, errors.Wrap(err, "analysis: fft")
	}
	for k := range a.mag {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	vecmath.ScaleBlock(a.mag, a.mag, 2/(float64(a.size)*a.windowGain))
	return a.mag, nil
}

// ToDB converts linear magnitudes to dBFS into dst, which must be at least
// as long as mags. Silent bins read FloorDB.
func ToDB(dst, mags []float64) {
	for i, m := range mags {
		if m <= 0 {
			dst[i] = FloorDB
			continue
		}
		dst[i] = math.Max(20*math.Log10(m), FloorDB)
	}
}

// Centroid is the magnitude weighted mean frequency of mags, 0 for silence.
func Centroid(mags []float64, binHz float64) float64 {
	var num, den float64
	for k, m := range mags {
		num += float64(k) * binHz * m
		den += m
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Dominant returns the frequency of the strongest bin, ignoring DC.
func Dominant(mags []float64, binHz float64) float64 {
	best, at := 0.0, 0
	for k := 1; k < len(mags); k++ {
		if mags[k] > best {
			best, at = mags[k], k
		}
	}
	return float64(at) * binHz
}

// Levels holds peak and RMS amplitude of a block.
type Levels struct {
	Peak float64
	RMS  float64
}

// PeakDB and RMSDB report the levels in dBFS, floored at FloorDB.
func (l Levels) PeakDB() float64 { return toDB(l.Peak) }
func (l Levels) RMSDB() float64  { return toDB(l.RMS) }

func toDB(v float64) float64 {
	if v <= 0 {
		return FloorDB
	}
	return math.Max(20*math.Log10(v), FloorDB)
}

func Measure(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{}
	}
	var peak, sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return Levels{Peak: peak, RMS: math.Sqrt(sum / float64(len(samples)))}
}

// Report summarizes a whole render.
type Report struct {
	Levels
	CentroidHz float64
	DominantHz float64
	Frames     int
}

// Analyze measures samples and averages the spectrum over consecutive
// non-overlapping frames.
func (a *Analyzer) Analyze(samples []float32) (Report, error) {
	r := Report{Levels: Measure(samples)}
	avg := make([]float64, a.Bins())
	for off := 0; off+a.size <= len(samples); off += a.size {
		mags, err := a.Magnitudes(samples[off : off+a.size])
		if err != nil {
			return r, err
		}
		vecmath.AddBlockInPlace(avg, mags)
		r.Frames++
	}
	if r.Frames == 0 && len(samples) > 0 {
		mags, err := a.Magnitudes(samples)
		if err != nil {
			return r, err
		}
		copy(avg, mags)
		r.Frames = 1
	}
	r.CentroidHz = Centroid(avg, a.BinHz())
	r.DominantHz = Dominant(avg, a.BinHz())
	return r, nil
}
