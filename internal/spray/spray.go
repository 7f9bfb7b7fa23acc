package spray

import "math/rand"

// Source draws the bounded random start offset applied once per grain cycle.
// It is owned by a single voice and is not safe for concurrent use.
type Source struct {
	amount int // half-width of the offset range in samples
	rng    *rand.Rand
}

func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// SetAmount sets the half-width in samples. Negative values disable spray.
func (s *Source) SetAmount(samples int) {
	if samples < 0 {
		samples = 0
	}
	s.amount = samples
}

func (s *Source) Amount() int { return s.amount }

func (s *Source) Enabled() bool { return s.amount != 0 }

// Next returns an offset in [-amount, amount), or 0 when disabled.
func (s *Source) Next() int {
	if s.amount == 0 {
		return 0
	}
	return s.rng.Intn(2*s.amount) - s.amount
}
