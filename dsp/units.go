package dsp

import "github.com/cwbudde/algo-approx"

// PowTwo computes 2^x through the fast exponential.
func PowTwo(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// SemitonesToRatio converts a pitch interval in semitones to a frequency
// ratio.
func SemitonesToRatio(semitones float32) float32 {
	return PowTwo(semitones / 12.0)
}
