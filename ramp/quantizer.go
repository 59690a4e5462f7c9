// Package ramp recovers a continuous phase ramp from an arbitrary clock
// pulse stream. Three prediction strategies run concurrently (moving average
// of past intervals, periodic rhythmic patterns, constant pulse width) and
// the one with the smallest running error drives the ramp.
package ramp

// Ratio describes a clock division or multiplication: the recovered train
// phase sweeps from 0 to Q over Q input pulses and the emitted ramp is
// trainPhase*Ratio modulo 1.
type Ratio struct {
	Ratio float32
	Q     int
}

// HysteresisQuantizer maps a continuous control value onto a ratio table
// without flickering at bin boundaries: the previous bin is kept while the
// scaled value stays within 0.6 of it.
type HysteresisQuantizer struct {
	index int
}

// Init forgets the previous bin.
func (q *HysteresisQuantizer) Init() {
	q.index = -1
}

// Lookup selects an entry from ratios for a control value nominally in
// [0, 1]. Out-of-range values saturate.
func (q *HysteresisQuantizer) Lookup(ratios []Ratio, value float32) Ratio {
	scaled := value * float32(len(ratios)-1)
	index := q.index
	if index < 0 || absf(scaled-float32(index)) > 0.6 {
		index = int(scaled + 0.5)
	}
	if index < 0 {
		index = 0
	} else if index > len(ratios)-1 {
		index = len(ratios) - 1
	}
	q.index = index
	return ratios[index]
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
