package effects

// Reverb is a mono Schroeder reverb: four damped comb filters in parallel
// followed by two allpass diffusers.
type Reverb struct {
	combs   [4]comb
	allpass [2]allpass
	wet     float32
}

type comb struct {
	buf  []float32
	pos  int
	fb   float32
	damp float32
	lp   float32
}

type allpass struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb effect.
// roomSize: 0..1 scales the delay lengths
// feedback: 0..0.95 controls decay time
// wet: wet/dry mix 0..1
// damp: 0..1 high frequency absorption inside the combs
func NewReverb(sampleRate int, roomSize, feedback, wet, damp float32) *Reverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	r := &Reverb{wet: clamp(wet, 0, 1)}
	lens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = comb{
			buf:  make([]float32, lens[i]),
			fb:   clamp(feedback, 0, 0.95),
			damp: clamp(damp, 0, 1),
		}
	}
	for i, n := range [2]int{base * 347 / 1000, base * 113 / 1000} {
		r.allpass[i] = allpass{buf: make([]float32, max(n, 1)), fb: 0.5}
	}
	return r
}

func (r *Reverb) Process(buf []float32) {
	for i, x := range buf {
		var out float32
		for c := range r.combs {
			out += r.combs[c].process(x)
		}
		out *= 0.25
		for a := range r.allpass {
			out = r.allpass[a].process(out)
		}
		buf[i] = x*(1-r.wet) + out*r.wet
	}
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
		r.combs[i].lp = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *comb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.lp = out*(1-c.damp) + c.lp*c.damp
	c.buf[c.pos] = in + c.lp*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(in float32) float32 {
	delayed := a.buf[a.pos]
	a.buf[a.pos] = in + delayed*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return delayed - in
}
