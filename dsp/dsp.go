// Package dsp provides the sample-level primitives shared by the segment
// generator and the ramp extractor: gate flags, one-pole smoothers, block
// parameter interpolation, lookup tables, a 16-bit delay line and a
// deterministic random source.
package dsp

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// OnePole advances a first-order smoother: y += k*(x - y).
func OnePole(state *float32, in, coefficient float32) {
	*state += coefficient * (in - *state)
	*state = float32(dspcore.FlushDenormals(float64(*state)))
}

// Slope is an asymmetric one-pole: rising errors are tracked with the up
// coefficient, falling errors with the down coefficient.
func Slope(state *float32, in, up, down float32) {
	err := in - *state
	if err > 0 {
		*state += up * err
	} else {
		*state += down * err
	}
}

// Crossfade linearly blends from a to b as t goes from 0 to 1.
func Crossfade(a, b, t float32) float32 {
	return a + (b-a)*t
}
