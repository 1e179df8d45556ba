package common

import "time"

// Rand is the source of uniform randomness used by loops, drift and renderers.
type Rand interface {
	// Random returns a float64 in [0, 1).
	Random() float64
}

// SeededRNG implements a Mulberry32 seeded pseudo-random number generator.
// Produces deterministic sequences so a session can be replayed from its seed.
// It is not safe for concurrent use; give each goroutine its own stream.
type SeededRNG struct {
	state       uint32
	initialSeed uint32
}

// NewSeededRNG creates a new seeded random number generator.
func NewSeededRNG(seed uint32) *SeededRNG {
	return &SeededRNG{
		state:       seed,
		initialSeed: seed,
	}
}

// NewTimeSeededRNG seeds a generator from the wall clock.
func NewTimeSeededRNG() *SeededRNG {
	return NewSeededRNG(uint32(time.Now().UnixNano()))
}

// SetSeed sets a new seed and resets the generator state.
func (r *SeededRNG) SetSeed(seed uint32) {
	r.state = seed
	r.initialSeed = seed
}

// Seed returns the seed the generator was created or last reset with.
func (r *SeededRNG) Seed() uint32 {
	return r.initialSeed
}

// Reset resets the generator to its initial seed.
func (r *SeededRNG) Reset() {
	r.state = r.initialSeed
}

// Random generates the next random number using Mulberry32 algorithm.
// Returns a float64 between 0 (inclusive) and 1 (exclusive).
func (r *SeededRNG) Random() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64((t^(t>>14))>>0) / 4294967296.0
}

// RandomInt generates a random integer in the specified range [min, max).
func (r *SeededRNG) RandomInt(min, max int) int {
	return int(r.Random()*float64(max-min)) + min
}

// RandomFloat generates a random float in the specified range [min, max).
func (r *SeededRNG) RandomFloat(min, max float64) float64 {
	return r.Random()*(max-min) + min
}

// RandomSign returns -1 or +1 with equal probability.
func (r *SeededRNG) RandomSign() float64 {
	if r.Random() < 0.5 {
		return -1
	}
	return 1
}

// StreamSeed derives an independent seed for a numbered stream (one per
// generative part) from a session seed.
func StreamSeed(baseSeed uint32, stream int) uint32 {
	seed := baseSeed ^ (uint32(stream) * 2654435761)
	seed = (seed ^ (seed >> 16)) * 0x85ebca6b
	seed = (seed ^ (seed >> 13)) * 0xc2b2ae35
	return seed ^ (seed >> 16)
}
