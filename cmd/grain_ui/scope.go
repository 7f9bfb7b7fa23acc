package main

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/cbegin/granular-go/internal/analysis"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	fftSize    = 2048
	ringBufLen = 131072
)

// tap collects rendered output for the scope.
type tap struct {
	mu          sync.Mutex
	ring        []float32
	writePos    int
	totalTapped int64 // samples written since last reset
}

func newTap() *tap {
	return &tap{ring: make([]float32, ringBufLen)}
}

// Write is called from the audio thread. Keep it minimal: just copy into ring.
func (t *tap) Write(samples []float32) {
	t.mu.Lock()
	for _, s := range samples {
		t.ring[t.writePos] = s
		t.writePos = (t.writePos + 1) % ringBufLen
	}
	t.totalTapped += int64(len(samples))
	t.mu.Unlock()
}

func (t *tap) Reset() {
	t.mu.Lock()
	t.totalTapped = 0
	t.mu.Unlock()
}

// Snapshot copies the n samples aligned to what the listener actually hears.
// playbackPos is the audio driver's current output position in samples.
func (t *tap) Snapshot(dst []float32, playbackPos int64) {
	n := min(len(dst), ringBufLen)
	t.mu.Lock()
	// The delay is how far ahead the tap is from the speaker output.
	delay := int(max(t.totalTapped-playbackPos, 0))
	delay = min(delay, ringBufLen-n)
	start := (t.writePos - delay - n + ringBufLen*2) % ringBufLen
	for i := range n {
		dst[i] = t.ring[(start+i)%ringBufLen]
	}
	t.mu.Unlock()
}

// scope draws the output waveform above a log-frequency spectrum.
type scope struct {
	tap      *tap
	analyzer *analysis.Analyzer
	snap     []float32
	img      *ebiten.Image
	w, h     int
	// Smoothed spectrum bins for display (0..1 range).
	bins     []float64
	wavePeak float64
}

func newScope(t *tap, sampleRate int) (*scope, error) {
	a, err := analysis.New(fftSize, sampleRate)
	if err != nil {
		return nil, err
	}
	return &scope{tap: t, analyzer: a, snap: make([]float32, fftSize)}, nil
}

func (s *scope) draw(screen *ebiten.Image, rect image.Rectangle, playbackPos int64) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width := inner.Dx()
	height := inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if s.img == nil || s.w != width || s.h != height {
		s.w, s.h = width, height
		s.img = ebiten.NewImage(width, height)
	}
	s.img.Fill(color.RGBA{14, 16, 22, 255})
	s.tap.Snapshot(s.snap, playbackPos)

	waveH := int(float64(height) * 0.45)
	s.drawWaveform(s.snap, width, waveH)
	ebitenutil.DrawRect(s.img, 0, float64(waveH), float64(width), 1, color.RGBA{50, 54, 68, 180})
	specY := waveH + 1
	s.drawSpectrumBars(s.snap, width, height-specY, specY)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(s.img, op)
}

func (s *scope) drawWaveform(samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(s.img, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: track peak with fast attack, slow release.
	target := max(analysis.Measure(samples).Peak, 0.01)
	if target > s.wavePeak {
		s.wavePeak = s.wavePeak*0.3 + target*0.7
	} else {
		s.wavePeak = s.wavePeak*0.995 + target*0.005
	}
	s.wavePeak = max(s.wavePeak, 0.01)
	gain := float64(midY-2) / s.wavePeak

	// Use zero-crossing trigger to stabilize the display.
	triggerOffset := findZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-triggerOffset, 2)

	waveColor := color.RGBA{80, 200, 255, 220}
	prevX := 0
	prevY := midY - int(float64(samples[triggerOffset])*gain)
	for px := 1; px < width; px++ {
		si := min(triggerOffset+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(s.img, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX = px
		prevY = y
	}
}

// findZeroCrossing finds a rising zero-crossing in samples to stabilize the waveform display.
func findZeroCrossing(samples []float32, searchLen int) int {
	searchLen = min(searchLen, len(samples)-2)
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (s *scope) drawSpectrumBars(samples []float32, width int, height int, yOffset int) {
	if width < 4 || height < 4 {
		return
	}
	mags, err := s.analyzer.Magnitudes(samples)
	if err != nil {
		return
	}

	numBars := min(max(width/3, 16), 256)
	if len(s.bins) != numBars {
		s.bins = make([]float64, numBars)
	}

	// Map bars to bins logarithmically, skipping DC, up to ~18kHz.
	lastBin := len(mags) - 1
	maxBin := min(int(18000/s.analyzer.BinHz()), lastBin)
	logMin := 0.0
	logMax := math.Log(float64(maxBin))
	for i := range numBars {
		frac0 := float64(i) / float64(numBars)
		frac1 := float64(i+1) / float64(numBars)
		binStart := int(math.Exp(logMin + frac0*(logMax-logMin)))
		binEnd := max(int(math.Exp(logMin+frac1*(logMax-logMin))), binStart+1)
		binEnd = min(binEnd, lastBin)
		if binEnd <= binStart {
			continue
		}
		sum := 0.0
		for b := binStart; b < binEnd; b++ {
			sum += mags[b]
		}
		avg := sum / float64(binEnd-binStart)

		// Normalize ~-80dB..0dB to 0..1.
		db := 20 * math.Log10(avg+1e-10)
		norm := clamp((db+80)/80, 0, 1)

		// Smooth: fast attack, slower decay.
		prev := s.bins[i]
		if norm > prev {
			s.bins[i] = prev*0.3 + norm*0.7
		} else {
			s.bins[i] = prev*0.85 + norm*0.15
		}
	}

	barW := float64(width) / float64(numBars)
	for i, v := range s.bins {
		barH := max(v*float64(height-4), 1)
		x := float64(i) * barW
		y := float64(yOffset) + float64(height-2) - barH
		r, gr, b := spectrumColor(v)
		ebitenutil.DrawRect(s.img, x+1, y, barW-1, barH, color.RGBA{r, gr, b, 220})
	}
}

func spectrumColor(v float64) (uint8, uint8, uint8) {
	if v < 0.33 {
		t := v / 0.33
		return uint8(30 + 20*t), uint8(80 + 120*t), uint8(200 + 55*t)
	}
	if v < 0.66 {
		t := (v - 0.33) / 0.33
		return uint8(50 + 140*t), uint8(200 + 30*t), uint8(255 - 100*t)
	}
	t := (v - 0.66) / 0.34
	return uint8(190 + 65*t), uint8(230 - 100*t), uint8(155 - 100*t)
}
