package engine

import (
	"math"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/music"
)

// Selector produces index candidates into a pitch table. Candidates may be
// any integer; Resolve maps them into the table.
type Selector interface {
	Next(n int) int
}

// Resolve maps a candidate index into [0, n). An empty table is a
// programming error and panics.
func Resolve(candidate, n int) int {
	return music.Wrap(candidate, n)
}

// RandomSelector draws uniformly from the table.
type RandomSelector struct {
	rng common.Rand
}

func NewRandomSelector(rng common.Rand) *RandomSelector {
	return &RandomSelector{rng: rng}
}

func (s *RandomSelector) Next(n int) int {
	return int(s.rng.Random() * float64(n))
}

// DigitSelector walks a repeating fixed digit sequence.
type DigitSelector struct {
	digits []int
	pos    int
}

func NewDigitSelector(digits []int) *DigitSelector {
	return &DigitSelector{digits: append([]int(nil), digits...)}
}

func (s *DigitSelector) Next(int) int {
	d := s.digits[s.pos]
	s.pos = (s.pos + 1) % len(s.digits)
	return d
}

// PhaseSelector is a phase accumulator advanced by a fixed step every tick.
// The candidate is the integer part of the phase before the step, so with
// an irrational-like step the contour never repeats while the state stays
// a single float.
type PhaseSelector struct {
	phase float64
	step  float64
}

func NewPhaseSelector(step float64) *PhaseSelector {
	return &PhaseSelector{step: step}
}

func (s *PhaseSelector) Next(n int) int {
	c := int(math.Floor(s.phase))
	s.phase += s.step
	// keep the accumulator small; wrapping by n preserves the resolved index
	if n > 0 && s.phase >= float64(n)*1024 {
		s.phase = math.Mod(s.phase, float64(n))
	}
	return c
}

// Phase returns the current accumulator value.
func (s *PhaseSelector) Phase() float64 {
	return s.phase
}
