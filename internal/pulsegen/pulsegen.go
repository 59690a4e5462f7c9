// Package pulsegen builds gate-flag stimulus streams for tests and the
// render tool.
package pulsegen

import (
	"github.com/cwbudde/algo-stages/dsp"
)

// Train accumulates a gate level stream and expands it to per-sample flags.
type Train struct {
	levels []bool
}

// AddPulses appends count pulses of the given total length with the gate
// high for the first on samples of each.
func (t *Train) AddPulses(total, on, count int) {
	for c := 0; c < count; c++ {
		for i := 0; i < total; i++ {
			t.levels = append(t.levels, i < on)
		}
	}
}

// AddFreq appends n samples of a square clock at the given frequency and
// pulse width.
func (t *Train) AddFreq(n int, freq, pulseWidth float64, sampleRate int) {
	period := float64(sampleRate) / freq
	phase := 0.0
	for i := 0; i < n; i++ {
		t.levels = append(t.levels, phase < pulseWidth)
		phase += 1.0 / period
		if phase >= 1.0 {
			phase -= 1.0
		}
	}
}

// AddGate appends count gate cycles of on high samples followed by off low
// samples.
func (t *Train) AddGate(on, off, count int) {
	for c := 0; c < count; c++ {
		for i := 0; i < on; i++ {
			t.levels = append(t.levels, true)
		}
		for i := 0; i < off; i++ {
			t.levels = append(t.levels, false)
		}
	}
}

// AddSilence appends n low samples.
func (t *Train) AddSilence(n int) {
	for i := 0; i < n; i++ {
		t.levels = append(t.levels, false)
	}
}

// Len returns the number of samples accumulated so far.
func (t *Train) Len() int {
	return len(t.levels)
}

// Flags expands the level stream into gate flags.
func (t *Train) Flags() []dsp.GateFlag {
	out := make([]dsp.GateFlag, len(t.levels))
	dsp.GateFlagsFromLevels(dsp.GateFlagLow, t.levels, out)
	return out
}
