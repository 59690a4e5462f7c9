package segment

import "github.com/cwbudde/algo-stages/dsp"

// shapeLFO turns a phase ramp into the continuously-variable LFO waveform:
// a skewed triangle with an optional plateau, crossfaded with a sine around
// the center of the shape control.
func shapeLFO(shape float32, inOut []Output, bipolar bool) {
	shape -= 0.5
	if shape < 0 {
		shape = 2.0 + 9.999999*shape/(1.0-3.0*shape)
	} else {
		shape = 2.0 + 9.999999*shape/(1.0+3.0*shape)
	}

	slope := minf(shape*0.5, 0.5)
	plateauWidth := maxf(shape-3.0, 0.0)
	var sineAmount float32
	if shape < 2.0 {
		sineAmount = maxf(shape-1.0, 0.0)
	} else {
		sineAmount = maxf(3.0-shape, 0.0)
	}

	slopeUp := 1.0 / slope
	slopeDown := 1.0 / (1.0 - slope)
	plateau := 0.5 * (1.0 - plateauWidth)
	normalization := 1.0 / plateau
	phaseShift := plateauWidth * 0.25

	amplitude := float32(0.5)
	offset := float32(0.5)
	if bipolar {
		amplitude = 10.0 / 16.0
		offset = 0.0
	}

	for i := range inOut {
		phase := inOut[i].Phase + phaseShift
		if phase > 1.0 {
			phase -= 1.0
		}
		var triangle float32
		if phase < slope {
			triangle = slopeUp * phase
		} else {
			triangle = 1.0 - (phase-slope)*slopeDown
		}
		triangle -= 0.5
		triangle = clampf(triangle, -plateau, plateau)
		triangle *= normalization
		sine := dsp.SineWrap(phase + 0.75)
		inOut[i].Value = amplitude*dsp.Crossfade(triangle, sine, sineAmount) + offset
		if phase < 0.5 {
			inOut[i].Segment = 0
		} else {
			inOut[i].Segment = 1
		}
	}
}
