package main

import (
	"flag"
	"log"
	"path/filepath"

	granular "github.com/cbegin/granular-go"
	"github.com/hajimehoshi/ebiten/v2"
)

const uiSampleRate = 48000

func main() {
	var (
		fx   = flag.String("fx", "", `effect chain, e.g. "delay 250,0.4,0.3; reverb 0.6"`)
		seed = flag.Int64("seed", 0, "spray random seed")
	)
	flag.Parse()

	src := granular.SineSweep(uiSampleRate, 4, 110, 3520)
	var path string
	if flag.NArg() > 0 {
		p, err := filepath.Abs(flag.Arg(0))
		if err != nil {
			log.Fatalf("resolve %q: %v", flag.Arg(0), err)
		}
		loaded, err := granular.LoadSource(p)
		if err != nil {
			log.Fatal(err)
		}
		if src, err = granular.Resample(loaded, uiSampleRate); err != nil {
			log.Fatal(err)
		}
		path = p
	}

	g, err := newGame(src, path, []granular.Option{granular.WithEffects(*fx), granular.WithSeed(*seed)})
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("granular-go")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
