package dsp

// ParameterInterpolator walks a scalar linearly from its previous value to a
// new target across one render block, so per-block control updates do not
// step audibly. The state cell is committed to the target on construction;
// Next advances a local copy and returns the target, up to float32 rounding,
// after size calls.
type ParameterInterpolator struct {
	value     float32
	increment float32
}

// NewParameterInterpolator binds the interpolator to a state cell, commits
// the new target into it, and prepares size interpolation steps from the
// previous value.
func NewParameterInterpolator(state *float32, target float32, size int) ParameterInterpolator {
	p := ParameterInterpolator{
		value:     *state,
		increment: (target - *state) / float32(size),
	}
	*state = target
	return p
}

// Next advances by one sample and returns the interpolated value.
func (p *ParameterInterpolator) Next() float32 {
	p.value += p.increment
	return p.value
}

// Subsample returns the value a fraction t of one step past the current
// position, without advancing.
func (p *ParameterInterpolator) Subsample(t float32) float32 {
	return p.value + p.increment*t
}
