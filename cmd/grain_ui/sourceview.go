package main

import (
	"image"
	"image/color"
	"math"

	granular "github.com/cbegin/granular-go"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

var (
	sourceWaveColor = color.RGBA{120, 130, 150, 255}
	spanColor       = color.RGBA{60, 70, 110, 200}
	activeSpanColor = color.RGBA{255, 170, 40, 230}
	playheadColor   = color.RGBA{255, 255, 255, 255}
	sprayColor      = color.RGBA{90, 220, 120, 200}
)

// sourceView draws the loaded buffer once into an image and overlays the
// grain table on every frame.
type sourceView struct {
	samples []float32
	img     *ebiten.Image
	w, h    int
	view    granular.View
}

func (v *sourceView) setSource(samples []float32) {
	v.samples = samples
	v.img = nil
	v.view = granular.View{}
}

func (v *sourceView) render(width, height int) {
	v.w, v.h = width, height
	v.img = ebiten.NewImage(width, height)
	v.img.Fill(color.RGBA{14, 16, 22, 255})
	n := len(v.samples)
	if n == 0 {
		return
	}
	mid := float64(height) / 2
	for px := range width {
		lo := px * n / width
		hi := max((px+1)*n/width, lo+1)
		mn, mx := float32(0), float32(0)
		for _, s := range v.samples[lo:min(hi, n)] {
			mn = min(mn, s)
			mx = max(mx, s)
		}
		y0 := mid - float64(mx)*mid
		y1 := mid - float64(mn)*mid
		ebitenutil.DrawRect(v.img, float64(px), y0, 1, max(y1-y0, 1), sourceWaveColor)
	}
}

func (v *sourceView) draw(screen *ebiten.Image, rect image.Rectangle, pl *granular.Player) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width, height := inner.Dx(), inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if v.img == nil || v.w != width || v.h != height {
		v.render(width, height)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(v.img, op)

	// Keep the last view when the audio goroutine holds the voice.
	if pl != nil {
		pl.Inspect(&v.view)
	}
	n := len(v.samples)
	if n == 0 || len(v.view.Spans) == 0 {
		return
	}
	x0, y0 := float64(inner.Min.X), float64(inner.Min.Y)
	scale := float64(width) / float64(n)

	// Grain spans as a strip along the bottom; active grains light up.
	stripH := 6.0
	stripY := y0 + float64(height) - stripH
	reach := float64(v.view.GrainSize) * math.Abs(v.view.Pitch)
	for _, sp := range v.view.Spans {
		col := spanColor
		if sp.Active {
			col = activeSpanColor
		}
		lo, hi := math.Min(sp.Start, sp.End), math.Max(sp.Start, sp.End)
		if hi-lo > reach+1 {
			// wrapped around the buffer end
			ebitenutil.DrawRect(screen, x0+hi*scale, stripY, float64(width)-hi*scale, stripH, col)
			ebitenutil.DrawRect(screen, x0, stripY, max(lo*scale, 1), stripH, col)
		} else {
			ebitenutil.DrawRect(screen, x0+lo*scale, stripY, max((hi-lo)*scale, 1), stripH, col)
		}
		if sp.Active {
			ebitenutil.DrawRect(screen, x0+sp.Pos*scale, y0, 1, float64(height)-stripH, activeSpanColor)
		}
	}

	// The position counts through the buffer in playback order; reverse
	// playback walks it from the end.
	pos := float64(v.view.Position)
	sprayed := float64(v.view.SprayedStart)
	if v.view.Reverse {
		pos = float64(n-1) - pos
		sprayed = float64(n-1) - sprayed
	}
	ebitenutil.DrawRect(screen, x0+sprayed*scale, y0, 1, float64(height), sprayColor)
	ebitenutil.DrawRect(screen, x0+pos*scale-1, y0, 2, float64(height), playheadColor)
}
