package main

import (
	"fmt"
	"math"

	granular "github.com/cbegin/granular-go"
)

// paramControl binds a slider to one voice parameter. n is the source length
// in samples, needed for the start position.
type paramControl struct {
	slider
	lo, hi float64
	get    func(p granular.Params, n int) float64
	set    func(p *granular.Params, v float64, n int)
	format func(p granular.Params) string
}

func (c paramControl) frac(p granular.Params, n int) float64 {
	if c.hi == c.lo {
		return 0
	}
	return (c.get(p, n) - c.lo) / (c.hi - c.lo)
}

func (c paramControl) apply(p *granular.Params, frac float64, n int) {
	c.set(p, c.lo+frac*(c.hi-c.lo), n)
}

const controlLabelW = 150

var paramControls = []paramControl{
	{
		slider: slider{label: "Grain", labelW: controlLabelW},
		lo:     1,
		hi:     500,
		get:    func(p granular.Params, _ int) float64 { return p.GrainSizeMs },
		set:    func(p *granular.Params, v float64, _ int) { p.GrainSizeMs = math.Round(v) },
		format: func(p granular.Params) string { return fmt.Sprintf("%.0f ms", p.GrainSizeMs) },
	},
	{
		slider: slider{label: "Start", labelW: controlLabelW},
		lo:     0,
		hi:     1,
		get: func(p granular.Params, n int) float64 {
			if n <= 1 {
				return 0
			}
			return float64(p.StartPos) / float64(n-1)
		},
		set:    func(p *granular.Params, v float64, n int) { p.StartPos = int(v * float64(n-1)) },
		format: func(p granular.Params) string { return fmt.Sprintf("%d", p.StartPos) },
	},
	{
		slider: slider{label: "Stretch", labelW: controlLabelW},
		lo:     -2,
		hi:     2,
		get:    func(p granular.Params, _ int) float64 { return p.TimeStretch },
		set:    func(p *granular.Params, v float64, _ int) { p.TimeStretch = math.Round(v*100) / 100 },
		format: func(p granular.Params) string { return fmt.Sprintf("%+.2f", p.TimeStretch) },
	},
	{
		slider: slider{label: "Pitch", labelW: controlLabelW},
		lo:     24,
		hi:     72,
		get:    func(p granular.Params, _ int) float64 { return float64(p.MidiPitch) },
		set:    func(p *granular.Params, v float64, _ int) { p.MidiPitch = int(math.Round(v)) },
		format: func(p granular.Params) string { return fmt.Sprintf("midi %d", p.MidiPitch) },
	},
	{
		slider: slider{label: "Spray", labelW: controlLabelW},
		lo:     0,
		hi:     500,
		get:    func(p granular.Params, _ int) float64 { return p.SprayMs },
		set:    func(p *granular.Params, v float64, _ int) { p.SprayMs = math.Round(v) },
		format: func(p granular.Params) string { return fmt.Sprintf("%.0f ms", p.SprayMs) },
	},
	{
		slider: slider{label: "Window", labelW: controlLabelW},
		lo:     0,
		hi:     1,
		get:    func(p granular.Params, _ int) float64 { return p.GaussQ },
		set:    func(p *granular.Params, v float64, _ int) { p.GaussQ = math.Round(v*100) / 100 },
		format: func(p granular.Params) string { return fmt.Sprintf("q %.2f", p.GaussQ) },
	},
	{
		slider: slider{label: "Attack", labelW: controlLabelW},
		lo:     0,
		hi:     2000,
		get:    func(p granular.Params, _ int) float64 { return p.AttackMs },
		set:    func(p *granular.Params, v float64, _ int) { p.AttackMs = math.Round(v) },
		format: func(p granular.Params) string { return fmt.Sprintf("%.0f ms", p.AttackMs) },
	},
	{
		slider: slider{label: "Decay", labelW: controlLabelW},
		lo:     0,
		hi:     2000,
		get:    func(p granular.Params, _ int) float64 { return p.DecayMs },
		set:    func(p *granular.Params, v float64, _ int) { p.DecayMs = math.Round(v) },
		format: func(p granular.Params) string { return fmt.Sprintf("%.0f ms", p.DecayMs) },
	},
	{
		slider: slider{label: "Sustain", labelW: controlLabelW},
		lo:     0,
		hi:     1,
		get:    func(p granular.Params, _ int) float64 { return p.Sustain },
		set:    func(p *granular.Params, v float64, _ int) { p.Sustain = v },
		format: func(p granular.Params) string { return percent(p.Sustain) },
	},
	{
		slider: slider{label: "Release", labelW: controlLabelW},
		lo:     0,
		hi:     4000,
		get:    func(p granular.Params, _ int) float64 { return p.ReleaseMs },
		set:    func(p *granular.Params, v float64, _ int) { p.ReleaseMs = math.Round(v) },
		format: func(p granular.Params) string { return fmt.Sprintf("%.0f ms", p.ReleaseMs) },
	},
}
