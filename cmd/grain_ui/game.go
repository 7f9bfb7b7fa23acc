package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	granular "github.com/cbegin/granular-go"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW    = 1200
	windowH    = 800
	minWindowW = 1080
	minWindowH = 760

	noteVelocity = 100
)

type navEntry struct {
	name  string
	path  string
	isDir bool
}

type game struct {
	player  *granular.Player
	events  <-chan granular.Event
	opts    []granular.Option
	params  granular.Params
	tap     *tap
	scope   *scope
	srcView sourceView
	srcLen  int
	rate    int

	volume  float64
	eqGains [5]float64 // 0..2 range, 1.0 = unity

	draggingVolume bool
	draggingEQ     int // -1=none, 0-4=band index
	draggingParam  int // -1=none, index into paramControls

	playing bool
	paused  bool

	status    string
	statusErr bool

	cwd        string
	nav        []navEntry
	navScroll  int
	loadedPath string

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(src granular.Source, path string, opts []granular.Option) (*game, error) {
	t := newTap()
	sc, err := newScope(t, src.SampleRate)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if path != "" {
		cwd = filepath.Dir(path)
	}
	g := &game{
		opts:          append(opts, granular.WithSampleTap(t.Write)),
		params:        granular.DefaultParams(),
		tap:           t,
		scope:         sc,
		rate:          src.SampleRate,
		volume:        1.0,
		eqGains:       [5]float64{1, 1, 1, 1, 1},
		draggingEQ:    -1,
		draggingParam: -1,
		status:        "Ready. Space toggles the gate.",
		cwd:           cwd,
		loadedPath:    path,
		textCache:     make(map[string]*ebiten.Image, 1024),
		viewW:         windowW,
		viewH:         windowH,
	}
	if err := g.rebuildPlayer(src); err != nil {
		return nil, err
	}
	if err := g.refreshNav(); err != nil {
		g.setError(err.Error())
	}
	return g, nil
}

func (g *game) Update() error {
	g.pollEvents()
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.toggleGate()
	}
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.nav)
	g.drawPanel(screen, l.eq)
	g.drawDarkPanel(screen, l.source)
	g.drawDarkPanel(screen, l.scope)
	g.drawSunkenPanel(screen, l.status)

	g.drawText(screen, "Files", l.nav.Min.X+8, l.nav.Min.Y+8)
	g.drawNavigator(screen, l.nav)
	g.drawEQ(screen, l.eq)
	g.srcView.draw(screen, l.source, g.player)
	for i, c := range paramControls {
		g.drawSlider(screen, l.params[i], c.slider, c.frac(g.params, g.srcLen), c.format(g.params))
	}
	g.scope.draw(screen, l.scope, g.player.PlaybackPosition())

	g.drawButton(screen, l.play, g.playButtonLabel(), g.playing && !g.paused)
	g.drawButton(screen, l.gate, "Gate", g.params.Gate())
	g.drawSlider(screen, l.volume, slider{label: "Vol", labelW: 80}, g.volume, percent(g.volume))
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.player.Close() }

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case granular.EventSilent:
				if !g.statusErr {
					g.setStatus("Released")
				}
			case granular.EventFault, granular.EventRejected:
				g.setError(fmt.Sprintf("%s: %v", ev.Kind, ev.Err))
			}
		default:
			return
		}
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlayPause()
			return
		case pointInRect(mx, my, l.gate):
			g.toggleGate()
			return
		case pointInRect(mx, my, l.volume):
			g.draggingVolume = true
		case pointInRect(mx, my, l.eq):
			g.draggingEQ = g.eqBandFromMouse(mx, l.eq)
		case pointInRect(mx, my, l.nav):
			g.clickNavigator(my, l.nav)
			return
		default:
			for i, r := range l.params {
				if pointInRect(mx, my, r) {
					g.draggingParam = i
				}
			}
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.draggingVolume = false
		g.draggingEQ = -1
		g.draggingParam = -1
	}
	if g.draggingVolume {
		g.updateVolumeFromMouse(mx, l.volume)
	}
	if g.draggingEQ >= 0 {
		g.dragEQ(my, l.eq)
	}
	if g.draggingParam >= 0 {
		g.dragParam(mx, l.params[g.draggingParam])
	}

	_, wy := ebiten.Wheel()
	if wy != 0 && pointInRect(mx, my, l.nav) {
		g.navScroll = max(g.navScroll-int(wy*2), 0)
	}
}

type uiLayout struct {
	nav, eq, source, scope image.Rectangle
	params                 []image.Rectangle
	play, gate, volume     image.Rectangle
	status                 image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40

	// Bottom: status row, then controls row above it.
	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH

	// Left column: nav + EQ.
	navW := 280
	eqH := 120
	navBottom := controlsTop - 12
	eqTop := navBottom - eqH
	navRect := image.Rect(pad, pad, pad+navW, eqTop-8)
	eqRect := image.Rect(pad, eqTop, pad+navW, navBottom)

	// Right column: source view, parameter sliders, scope.
	rightX := navRect.Max.X + 12
	rightW := max(w-rightX-pad, 320)
	contentBottom := controlsTop - 12
	sliderH := 38
	rows := (len(paramControls) + 1) / 2
	colW := (rightW - 8) / 2
	sourceH := int(float64(contentBottom-pad) * 0.3)
	sourceRect := image.Rect(rightX, pad, rightX+rightW, pad+sourceH)
	params := make([]image.Rectangle, len(paramControls))
	for i := range params {
		x := rightX + (i%2)*(colW+8)
		y := sourceRect.Max.Y + 12 + (i/2)*(sliderH+4)
		params[i] = image.Rect(x, y, x+colW, y+sliderH)
	}
	scopeTop := sourceRect.Max.Y + 12 + rows*(sliderH+4) + 8
	scopeRect := image.Rect(rightX, scopeTop, rightX+rightW, contentBottom)

	// Controls row.
	playRect := image.Rect(pad, controlsTop, pad+130, controlsTop+rowH)
	gateRect := image.Rect(pad+142, controlsTop, pad+272, controlsTop+rowH)
	volRight := min(pad+284+360, w-pad)
	volumeRect := image.Rect(pad+284, controlsTop, volRight, controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		nav: navRect, eq: eqRect, source: sourceRect, scope: scopeRect,
		params: params,
		play: playRect, gate: gateRect, volume: volumeRect,
		status: statusRect,
	}
}

func (g *game) drawNavigator(screen *ebiten.Image, rect image.Rectangle) {
	label := g.cwd
	if g.loadedPath != "" {
		label = g.cwd + "  [" + filepath.Base(g.loadedPath) + "]"
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenMiddle(label, maxChars), rect.Min.X+8, rect.Min.Y+8+lineH)

	top := rect.Min.Y + 12 + (lineH * 2)
	maxLines := max((rect.Dy()-(lineH*2)-18)/lineH, 1)
	if g.navScroll > len(g.nav)-1 {
		g.navScroll = max(0, len(g.nav)-1)
	}
	for i := range maxLines {
		idx := g.navScroll + i
		if idx >= len(g.nav) {
			break
		}
		entry := g.nav[idx]
		y := top + i*lineH
		if g.loadedPath != "" && !entry.isDir && samePath(entry.path, g.loadedPath) {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH+2), highlightColor)
		}
		txt := entry.name
		if entry.isDir && entry.name != ".." {
			txt += "/"
		}
		g.drawText(screen, shortenEnd(txt, maxChars-1), rect.Min.X+10, y)
	}
}

func (g *game) clickNavigator(my int, rect image.Rectangle) {
	top := rect.Min.Y + 12 + (lineH * 2)
	row := (my - top) / lineH
	if row < 0 {
		return
	}
	idx := g.navScroll + row
	if idx < 0 || idx >= len(g.nav) {
		return
	}
	entry := g.nav[idx]
	if entry.isDir {
		g.cwd = entry.path
		g.navScroll = 0
		if err := g.refreshNav(); err != nil {
			g.setError(err.Error())
			return
		}
		g.setStatus("Directory: " + g.cwd)
		return
	}
	if err := g.loadFile(entry.path); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Loaded " + filepath.Base(entry.path))
}

func (g *game) refreshNav() error {
	items, err := os.ReadDir(g.cwd)
	if err != nil {
		return err
	}
	var dirs, files []navEntry
	parent := filepath.Dir(g.cwd)
	if parent != g.cwd {
		dirs = append(dirs, navEntry{name: "..", path: parent, isDir: true})
	}
	for _, it := range items {
		name := it.Name()
		full := filepath.Join(g.cwd, name)
		if it.IsDir() {
			dirs = append(dirs, navEntry{name: name, path: full, isDir: true})
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".wav", ".mp3":
			files = append(files, navEntry{name: name, path: full})
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		if dirs[i].name == ".." {
			return true
		}
		if dirs[j].name == ".." {
			return false
		}
		return strings.ToLower(dirs[i].name) < strings.ToLower(dirs[j].name)
	})
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].name) < strings.ToLower(files[j].name)
	})
	g.nav = append(dirs, files...)
	return nil
}

// loadFile decodes path and rebuilds the player at the open device rate.
func (g *game) loadFile(path string) error {
	src, err := granular.LoadSource(path)
	if err != nil {
		return err
	}
	if src, err = granular.Resample(src, g.rate); err != nil {
		return err
	}
	if err := g.rebuildPlayer(src); err != nil {
		return err
	}
	g.loadedPath = path
	g.cwd = filepath.Dir(path)
	return g.refreshNav()
}

func (g *game) rebuildPlayer(src granular.Source) error {
	wasPlaying := g.playing && !g.paused
	p := g.params
	p.Velocity = 0
	pl, err := granular.NewPlayer(src, p, g.opts...)
	if err != nil {
		return err
	}
	if g.player != nil {
		_ = g.player.Close()
	}
	g.player = pl
	g.events = pl.Watch()
	g.params = pl.Params()
	g.srcLen = len(src.Samples)
	g.srcView.setSource(src.Samples)
	g.tap.Reset()
	pl.SetVolume(g.volume)
	for band, gain := range g.eqGains {
		pl.SetEQBand(band, float32(gain))
	}
	g.playing = false
	g.paused = false
	if wasPlaying {
		g.togglePlayPause()
	}
	return nil
}

func (g *game) dragParam(mx int, rect image.Rectangle) {
	c := paramControls[g.draggingParam]
	frac, ok := c.valueAt(mx, rect)
	if !ok {
		return
	}
	next := g.params
	c.apply(&next, frac, g.srcLen)
	if next == g.params {
		return
	}
	if err := g.player.SetParams(next); err != nil {
		g.setError(err.Error())
		return
	}
	g.params = g.player.Params()
	g.setStatus(c.label + ": " + c.format(g.params))
}

func (g *game) toggleGate() {
	var err error
	if g.params.Gate() {
		err = g.player.NoteOff()
	} else {
		if !g.playing {
			g.togglePlayPause()
		}
		err = g.player.NoteOn(noteVelocity)
	}
	if err != nil {
		g.setError(err.Error())
		return
	}
	g.params = g.player.Params()
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	v, ok := slider{labelW: 80}.valueAt(mx, rect)
	if !ok {
		return
	}
	g.volume = v
	g.player.SetVolume(v)
	g.setStatus("Volume: " + percent(v))
}

var eqBandLabels = [5]string{"Lo", "LoM", "Mid", "HiM", "Hi"}

func (g *game) drawEQ(screen *ebiten.Image, rect image.Rectangle) {
	numBands := 5
	pad := 8
	labelH := 4
	innerX := rect.Min.X + pad
	innerW := rect.Dx() - pad*2
	innerY := rect.Min.Y + labelH
	innerH := rect.Dy() - labelH - pad

	bandW := innerW / numBands
	if bandW < 10 {
		return
	}
	for i := range numBands {
		bx := innerX + i*bandW
		bw := bandW - 4

		ebitenutil.DrawRect(screen, float64(bx+bw/2-2), float64(innerY), 4, float64(innerH), bevelDarker)
		centerY := innerY + innerH/2
		ebitenutil.DrawRect(screen, float64(bx), float64(centerY), float64(bw), 1, borderColor)

		// Knob: map gain 0..2 to bottom..top.
		frac := clamp(g.eqGains[i]/2.0, 0, 1)
		knobY := innerY + innerH - int(frac*float64(innerH)) - 4
		knobRect := image.Rect(bx+2, knobY, bx+bw-2, knobY+8)
		ebitenutil.DrawRect(screen, float64(knobRect.Min.X), float64(knobRect.Min.Y), float64(knobRect.Dx()), float64(knobRect.Dy()), panelColor)
		drawBorder(screen, knobRect)
	}
}

func (g *game) dragEQ(my int, rect image.Rectangle) {
	band := g.draggingEQ
	if band < 0 || band >= 5 {
		return
	}
	pad := 8
	labelH := 4
	innerY := rect.Min.Y + labelH
	innerH := rect.Dy() - labelH - pad
	if innerH <= 0 {
		return
	}
	// Map y position to gain: top = 2.0, bottom = 0.0.
	gain := (1.0 - clamp(float64(my-innerY)/float64(innerH), 0, 1)) * 2.0
	g.eqGains[band] = gain
	g.player.SetEQBand(band, float32(gain))
	g.setStatus(fmt.Sprintf("EQ %s: %.1f", eqBandLabels[band], gain))
}

func (g *game) eqBandFromMouse(mx int, rect image.Rectangle) int {
	pad := 8
	innerX := rect.Min.X + pad
	bandW := (rect.Dx() - pad*2) / 5
	if bandW <= 0 {
		return -1
	}
	idx := (mx - innerX) / bandW
	if idx < 0 || idx >= 5 {
		return -1
	}
	return idx
}

func (g *game) togglePlayPause() {
	if !g.playing {
		if err := g.player.Play(); err != nil {
			g.setError(err.Error())
			return
		}
		g.playing = true
		g.paused = false
		g.setStatus("Playing")
		return
	}
	if g.paused {
		g.player.Resume()
		g.paused = false
		g.setStatus("Playing")
		return
	}
	g.player.Pause()
	g.paused = true
	g.setStatus("Paused")
}

func (g *game) playButtonLabel() string {
	if !g.playing {
		return "Play"
	}
	if g.paused {
		return "Resume"
	}
	return "Pause"
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
