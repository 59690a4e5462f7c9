// Package segment renders control-voltage and gate-style signals from a
// chain of one to six configurable segments. Depending on the configuration
// the chain behaves as an envelope, a step sequencer, an LFO, a
// sample-and-hold, a clock divider, a pulse delay or a shift-register random
// pattern generator.
package segment

// Type selects the behavior of one segment.
type Type uint8

const (
	TypeRamp Type = iota
	TypeStep
	TypeHold
	TypeTuring
)

// Range selects a speed range for LFO-like segments.
type Range uint8

const (
	RangeDefault Range = iota
	RangeSlow
	RangeFast
)

// Multimode mirrors the externally-owned module mode setting. It selects the
// process-mode table and scales the free-running LFO.
type Multimode uint8

const (
	MultimodeNormal Multimode = iota
	MultimodeSlowLFO
	MultimodeAdvanced
)

// Configuration describes one segment of a channel. It is stable for the
// duration of a render block.
type Configuration struct {
	Type    Type
	Bipolar bool
	Loop    bool
	Range   Range
}

// Parameters are the two per-segment controls. Their meaning depends on the
// segment type and process mode (time, curve, frequency, probability...).
type Parameters struct {
	Primary   float32
	Secondary float32
}

// Output is one rendered sample.
type Output struct {
	Value   float32
	Phase   float32
	Segment uint8
}

// Settings is the externally-owned module state consumed by the generator.
// The generator keeps a reference and reads it during Configure and Process.
type Settings struct {
	SampleRate float32
	Multimode  Multimode
}

// MaxNumSegments is the maximum number of segments per channel.
const MaxNumSegments = 6

// Duration of the "tooth" in the output when a trigger is received while the
// output is high.
const retrigDelaySamples = 32

// sampleAndHoldDelay returns the gate realignment delay in samples (2 ms),
// for sequencers whose CV and GATE outputs are out of sync.
func sampleAndHoldDelay(sampleRate float32) int {
	return int(sampleRate * 2.0 / 1000.0)
}
