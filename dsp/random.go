package dsp

// Random is a 32-bit linear congruential generator. The exact sequence is
// part of the observable behavior of the random segment kernels, so the
// generator is fixed here rather than delegated to math/rand.
type Random struct {
	state uint32
}

// Seed resets the generator state.
func (r *Random) Seed(seed uint32) {
	r.state = seed
}

// Uint32 returns the next raw 32-bit word.
func (r *Random) Uint32() uint32 {
	r.state = r.state*1664525 + 1013904223
	return r.state
}

// Uint16 returns the high half of the next word.
func (r *Random) Uint16() uint16 {
	return uint16(r.Uint32() >> 16)
}

// Float returns a uniform sample in [0, 1).
func (r *Random) Float() float32 {
	return float32(r.Uint32()>>8) / 16777216.0
}

// Rng is the shared generator used by the segment kernels. Seed it for
// reproducible renders.
var Rng = Random{state: 0x21}
