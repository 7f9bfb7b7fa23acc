package effects

// Delay is a feedback delay line with a one-pole lowpass in the feedback
// path, so repeats darken as they decay.
type Delay struct {
	buf      []float32
	pos      int
	feedback float32
	wet      float32
	damp     float32
	lp       float32
}

// NewDelay creates a delay effect.
// delayMs: delay time in milliseconds
// feedback: feedback amount 0..0.95
// wet: wet/dry mix 0..1
// damp: high frequency loss per repeat 0..1
func NewDelay(sampleRate int, delayMs float64, feedback, wet, damp float32) *Delay {
	samples := int(delayMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	return &Delay{
		buf:      make([]float32, samples),
		feedback: clamp(feedback, 0, 0.95),
		wet:      clamp(wet, 0, 1),
		damp:     clamp(damp, 0, 1),
	}
}

func (d *Delay) Process(buf []float32) {
	for i, x := range buf {
		tap := d.buf[d.pos]
		d.lp += (1 - d.damp) * (tap - d.lp)
		d.buf[d.pos] = x + d.lp*d.feedback
		d.pos++
		if d.pos >= len(d.buf) {
			d.pos = 0
		}
		buf[i] = x*(1-d.wet) + tap*d.wet
	}
}

func (d *Delay) Reset() {
	clear(d.buf)
	d.pos = 0
	d.lp = 0
}
