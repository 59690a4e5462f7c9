package segment

import (
	"math"

	"github.com/cwbudde/algo-stages/dsp"
)

const testSampleRate = 32000

func newTestGenerator(multimode Multimode) *Generator {
	settings := &Settings{SampleRate: testSampleRate, Multimode: multimode}
	g := &Generator{}
	g.Init(settings)
	return g
}

// render drives the generator block by block over the whole gate stream.
func render(g *Generator, flags []dsp.GateFlag, blockSize int) []Output {
	out := make([]Output, len(flags))
	for start := 0; start < len(flags); start += blockSize {
		end := start + blockSize
		if end > len(flags) {
			end = len(flags)
		}
		g.Process(flags[start:end], out[start:end])
	}
	return out
}

func flagsFromLevels(levels []bool) []dsp.GateFlag {
	out := make([]dsp.GateFlag, len(levels))
	dsp.GateFlagsFromLevels(dsp.GateFlagLow, levels, out)
	return out
}

// gatePattern builds a level stream with the given leading silence and then
// count pulses of the given period, high for the first on samples.
func gatePattern(silence, period, on, count int) []bool {
	levels := make([]bool, silence, silence+period*count)
	for c := 0; c < count; c++ {
		for i := 0; i < period; i++ {
			levels = append(levels, i < on)
		}
	}
	return levels
}

func silentFlags(n int) []dsp.GateFlag {
	return make([]dsp.GateFlag, n)
}

func countPhaseWraps(out []Output) int {
	wraps := 0
	for i := 1; i < len(out); i++ {
		if out[i].Phase < out[i-1].Phase-0.5 {
			wraps++
		}
	}
	return wraps
}

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func absf64(x float64) float64 {
	return math.Abs(x)
}
