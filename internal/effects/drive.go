package effects

import "math"

// Drive is tanh saturation followed by a one-pole lowpass that tames the
// added harmonics.
type Drive struct {
	pre   float32
	post  float32
	alpha float32 // 0 disables the lowpass
	lp    float32
}

// NewDrive creates a saturation stage.
// pre: input gain (higher = more saturation)
// post: output gain
// cutoff: lowpass cutoff in Hz, 0 or above Nyquist disables it
func NewDrive(sampleRate int, pre, post, cutoff float32) *Drive {
	d := &Drive{pre: pre, post: post}
	if cutoff > 0 && cutoff < float32(sampleRate)/2 {
		d.alpha = onePole(float64(cutoff), sampleRate)
	}
	return d
}

func (d *Drive) Process(buf []float32) {
	for i, x := range buf {
		y := float32(math.Tanh(float64(x*d.pre))) * d.post
		if d.alpha > 0 {
			d.lp += d.alpha * (y - d.lp)
			y = d.lp
		}
		buf[i] = y
	}
}

func (d *Drive) Reset() { d.lp = 0 }
