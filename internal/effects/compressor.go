package effects

import "math"

// Compressor is a feed-forward peak compressor with makeup gain.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // follower coefficient
	release   float32 // follower coefficient
	makeup    float32
	env       float32
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -18)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs, releaseMs: envelope follower times
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     ratio,
		attack:    followerCoeff(attackMs, sampleRate),
		release:   followerCoeff(releaseMs, sampleRate),
		makeup:    dbToGain(makeupDB),
	}
}

func dbToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func followerCoeff(ms float32, sampleRate int) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(float64(ms)*float64(sampleRate)/1000.0)))
}

func (c *Compressor) Process(buf []float32) {
	for i, x := range buf {
		a := float32(math.Abs(float64(x)))
		if a > c.env {
			c.env += c.attack * (a - c.env)
		} else {
			c.env += c.release * (a - c.env)
		}
		buf[i] = x * c.gain() * c.makeup
	}
}

// gain maps the follower level to a reduction factor above the threshold.
func (c *Compressor) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := c.env / c.threshold
	return float32(math.Pow(float64(over), float64(1/c.ratio-1)))
}

func (c *Compressor) Reset() { c.env = 0 }
