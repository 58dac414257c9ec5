package physics

import "math/rand"

// Default perturbation bounds.
const (
	MinOffset = -1
	MaxOffset = 1
)

// Perturbation is a bounded random walk. Each Next moves the offset one step
// up or down and keeps it within [lo, hi]. The offset persists between
// calls and across rounds.
type Perturbation struct {
	lo, hi int
	offset int
	rnd    *rand.Rand
}

// NewPerturbation creates a walk bounded to [lo, hi] driven by src.
// Passing lo == hi == 0 disables the perturbation.
func NewPerturbation(lo, hi int, src rand.Source) *Perturbation {
	if lo > hi {
		lo, hi = hi, lo
	}
	return &Perturbation{lo: lo, hi: hi, rnd: rand.New(src)}
}

// Next performs one step and returns the new offset.
func (p *Perturbation) Next() int {
	if p.rnd.Intn(2) == 0 {
		p.offset--
	} else {
		p.offset++
	}
	if p.offset < p.lo {
		p.offset = p.lo
	}
	if p.offset > p.hi {
		p.offset = p.hi
	}
	return p.offset
}

// Offset returns the current offset without stepping.
func (p *Perturbation) Offset() int {
	return p.offset
}

// Reset returns the offset to zero, or to the nearest bound if zero is
// outside the range.
func (p *Perturbation) Reset() {
	p.offset = 0
	if p.offset < p.lo {
		p.offset = p.lo
	}
	if p.offset > p.hi {
		p.offset = p.hi
	}
}
