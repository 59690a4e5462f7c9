package segment

import (
	"github.com/cwbudde/algo-stages/dsp"
	"github.com/cwbudde/algo-stages/ramp"
)

func (g *Generator) processZero(gateFlags []dsp.GateFlag, out []Output) {
	g.value = 0.0
	g.activeSegment = 1
	for i := range out {
		out[i] = Output{Value: 0.0, Phase: 0.5, Segment: 1}
	}
}

func (g *Generator) processDecayEnvelope(gateFlags []dsp.GateFlag, out []Output) {
	frequency := dsp.EnvFrequency(g.parameters[0].Primary)
	for i := range out {
		flags := gateFlags[i]
		if flags&dsp.GateFlagRising != 0 && (g.activeSegment != 0 || g.segments[0].retrig) {
			g.phase = 0.0
			g.activeSegment = 0
		}

		g.phase += frequency
		if g.phase >= 1.0 {
			g.phase = 1.0
			g.activeSegment = 1
		}
		g.value = 1.0 - warpPhase(g.phase, g.parameters[0].Secondary)
		g.lp = g.value
		out[i] = Output{Value: g.lp, Phase: g.phase, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processTimedPulseGenerator(gateFlags []dsp.GateFlag, out []Output) {
	frequency := dsp.EnvFrequency(g.parameters[0].Secondary)
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))
	for i := range out {
		flags := gateFlags[i]
		if flags&dsp.GateFlagRising != 0 && (g.activeSegment != 0 || g.segments[0].retrig) {
			if g.activeSegment == 0 {
				g.retrigDelay = retrigDelaySamples
			} else {
				g.retrigDelay = 0
			}
			g.phase = 0.0
			g.activeSegment = 0
		}
		if g.retrigDelay > 0 {
			g.retrigDelay--
		}
		g.phase += frequency
		if g.phase >= 1.0 {
			g.phase = 1.0
			g.activeSegment = 1
		}

		p := primary.Next()
		if g.activeSegment == 0 && g.retrigDelay == 0 {
			g.value = p
		} else {
			g.value = 0.0
		}
		g.lp = g.value
		out[i] = Output{Value: g.lp, Phase: g.phase, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processGateGenerator(gateFlags []dsp.GateFlag, out []Output) {
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))
	for i := range out {
		if gateFlags[i]&dsp.GateFlagHigh != 0 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}

		p := primary.Next()
		if g.activeSegment == 0 {
			g.value = p
		} else {
			g.value = 0.0
		}
		g.lp = g.value
		out[i] = Output{Value: g.lp, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processSampleAndHold(gateFlags []dsp.GateFlag, out []Output) {
	coefficient := dsp.PortamentoCoefficient(g.parameters[0].Secondary)
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))

	for i := range out {
		p := primary.Next()
		flags := gateFlags[i]
		g.gateDelay.Write(flags)
		if g.gateDelay.Read(g.shDelay)&dsp.GateFlagRising != 0 {
			g.value = p
		}
		if flags&dsp.GateFlagHigh != 0 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}

		dsp.OnePole(&g.lp, g.value, coefficient)
		out[i] = Output{Value: g.lp, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processTrackAndHold(gateFlags []dsp.GateFlag, out []Output) {
	coefficient := dsp.PortamentoCoefficient(g.parameters[0].Secondary)
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))

	for i := range out {
		p := primary.Next()
		flags := gateFlags[i]
		g.gateDelay.Write(flags)
		if g.gateDelay.Read(g.shDelay)&dsp.GateFlagHigh != 0 {
			g.value = p
		}
		if flags&dsp.GateFlagHigh != 0 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}

		dsp.OnePole(&g.lp, g.value, coefficient)
		out[i] = Output{Value: g.lp, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processPortamento(gateFlags []dsp.GateFlag, out []Output) {
	coefficient := dsp.PortamentoCoefficient(g.parameters[0].Secondary)
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))

	g.activeSegment = 0
	for i := range out {
		g.value = primary.Next()
		dsp.OnePole(&g.lp, g.value, coefficient)
		out[i] = Output{Value: g.lp, Phase: 0.5, Segment: 0}
	}
}

// lfoFrequency converts the primary parameter to a per-sample phase
// increment around the 2.04 Hz center, then applies the segment range and
// the module-wide slow-LFO mode.
func (g *Generator) lfoFrequency() float32 {
	f := 96.0 * (g.parameters[0].Primary - 0.5)
	f = clampf(f, -128.0, 127.0)

	frequency := dsp.SemitonesToRatio(f) * 2.0439497 / g.settings.SampleRate

	switch g.segments[0].rangeSel {
	case RangeSlow:
		frequency /= 16.0
	case RangeFast:
		frequency *= 64.0
		// A8, things get weird past this.
		frequency = minf(frequency, 7040.0/g.settings.SampleRate)
	}

	if g.settings.Multimode == MultimodeSlowLFO {
		frequency /= 8.0
	}
	return frequency
}

func (g *Generator) processFreeRunningLFO(gateFlags []dsp.GateFlag, out []Output) {
	frequency := g.lfoFrequency()

	g.activeSegment = 0
	for i := range out {
		g.phase += frequency
		if g.phase >= 1.0 {
			g.phase -= 1.0
		}
		out[i].Phase = g.phase
	}
	shapeLFO(g.parameters[0].Secondary, out, g.segments[0].bipolar)
	g.activeSegment = int(out[len(out)-1].Segment)
}

var dividerRatios = []ramp.Ratio{
	{Ratio: 0.249999, Q: 4},
	{Ratio: 0.333333, Q: 3},
	{Ratio: 0.499999, Q: 2},
	{Ratio: 0.999999, Q: 1},
	{Ratio: 1.999999, Q: 1},
	{Ratio: 2.999999, Q: 1},
	{Ratio: 3.999999, Q: 1},
}

var dividerRatiosSlow = []ramp.Ratio{
	{Ratio: 0.124999, Q: 8},
	{Ratio: 0.142856, Q: 7},
	{Ratio: 0.166666, Q: 6},
	{Ratio: 0.199999, Q: 5},
	{Ratio: 0.249999, Q: 4},
	{Ratio: 0.333333, Q: 3},
	{Ratio: 0.499999, Q: 2},
	{Ratio: 0.999999, Q: 1},
}

var dividerRatiosFast = []ramp.Ratio{
	{Ratio: 0.999999, Q: 1},
	{Ratio: 1.999999, Q: 1},
	{Ratio: 2.999999, Q: 1},
	{Ratio: 3.999999, Q: 1},
	{Ratio: 4.999999, Q: 1},
	{Ratio: 5.999999, Q: 1},
	{Ratio: 6.999999, Q: 1},
	{Ratio: 7.999999, Q: 1},
}

// tapLFORampChunk bounds the stack buffer used to carry the recovered ramp
// between the extractor and the shaper.
const tapLFORampChunk = 12

func (g *Generator) processTapLFO(gateFlags []dsp.GateFlag, out []Output) {
	var table []ramp.Ratio
	switch g.segments[0].rangeSel {
	case RangeSlow:
		table = dividerRatiosSlow
	case RangeFast:
		table = dividerRatiosFast
	default:
		table = dividerRatios
	}
	r := g.rampQuantizer.Lookup(table, g.parameters[0].Primary*1.03)

	var buf [tapLFORampChunk]float32
	for start := 0; start < len(out); start += tapLFORampChunk {
		end := start + tapLFORampChunk
		if end > len(out) {
			end = len(out)
		}
		chunk := buf[:end-start]
		g.rampExtractor.Process(r, gateFlags[start:end], chunk)
		for j, p := range chunk {
			out[start+j].Phase = p
		}
	}
	shapeLFO(g.parameters[0].Secondary, out, g.segments[0].bipolar)
	g.activeSegment = int(out[len(out)-1].Segment)
}

func (g *Generator) processDelay(gateFlags []dsp.GateFlag, out []Output) {
	const maxDelay = float32(dsp.MaxDelay - 1)

	delayTime := dsp.SemitonesToRatio(
		2.0*(g.parameters[0].Secondary-0.5)*36.0) * 0.5 * g.settings.SampleRate
	clockFrequency := float32(1.0)
	delayFrequency := 1.0 / delayTime

	if delayTime >= maxDelay {
		// Requested delay exceeds the line: slow the write clock down so the
		// full span still fits.
		clockFrequency = maxDelay * delayFrequency
		delayTime = maxDelay
	}
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))

	g.activeSegment = 0
	for i := range out {
		g.phase += clockFrequency
		dsp.OnePole(&g.lp, primary.Next(), clockFrequency)
		if g.phase >= 1.0 {
			g.phase -= 1.0
			g.delayLine.Write(g.lp)
		}

		g.aux += delayFrequency
		if g.aux >= 1.0 {
			g.aux -= 1.0
		}
		if g.aux < 0.5 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}

		dsp.OnePole(&g.value, g.delayLine.Read(delayTime-g.phase), clockFrequency)
		out[i] = Output{Value: g.value, Phase: g.aux, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processRandom(gateFlags []dsp.GateFlag, out []Output) {
	coefficient := dsp.PortamentoCoefficient(g.parameters[0].Secondary)
	f := 96.0 * (g.parameters[0].Primary - 0.5)
	f = clampf(f, -128.0, 127.0)
	frequency := dsp.SemitonesToRatio(f) * 2.0439497 / g.settings.SampleRate

	g.activeSegment = 0
	for i := range out {
		g.phase += frequency
		if g.phase >= 1.0 {
			g.phase -= 1.0
			g.value = dsp.Rng.Float()
			if g.segments[0].bipolar {
				g.value = 10.0 / 8.0 * (g.value - 0.5)
			}
			g.activeSegment = 1
		}
		dsp.OnePole(&g.lp, g.value, coefficient)
		out[i] = Output{Value: g.lp, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processTuring(gateFlags []dsp.GateFlag, out []Output) {
	steps := turingSteps(g.parameters[0].Secondary)
	primary := dsp.NewParameterInterpolator(&g.primary, g.parameters[0].Primary, len(out))

	seg := &g.segments[0]
	for i := range out {
		prob := primary.Next()
		flags := gateFlags[i]
		if flags&dsp.GateFlagRising != 0 {
			advanceTM(steps, prob, &seg.shiftRegister, &seg.registerValue, seg.bipolar)
			g.value = seg.registerValue
		}
		if flags&dsp.GateFlagHigh != 0 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}
		out[i] = Output{Value: seg.registerValue, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

func (g *Generator) processLogistic(gateFlags []dsp.GateFlag, out []Output) {
	coefficient := dsp.PortamentoCoefficient(g.parameters[0].Secondary)
	r := 0.5*g.parameters[0].Primary + 3.5
	if g.value <= 0.0 {
		g.value = dsp.Rng.Float()
	}

	for i := range out {
		flags := gateFlags[i]
		if flags&dsp.GateFlagRising != 0 {
			g.value *= r * (1.0 - g.value)
		}
		if flags&dsp.GateFlagHigh != 0 {
			g.activeSegment = 0
		} else {
			g.activeSegment = 1
		}

		dsp.OnePole(&g.lp, g.value, coefficient)
		v := g.lp
		if g.segments[0].bipolar {
			v = 10.0 / 8.0 * (g.lp - 0.5)
		}
		out[i] = Output{Value: v, Phase: 0.5, Segment: uint8(g.activeSegment)}
	}
}

// ProcessSlave overlays follower behavior on a sibling's rendered output:
// while the monitored segment is active the value retraces its phase from 1
// to 0, otherwise the output stays at 0.
func (g *Generator) ProcessSlave(out []Output) {
	for i := range out {
		if int(out[i].Segment) == g.monitoredSegment {
			g.activeSegment = 0
			out[i].Value = 1.0 - out[i].Phase
		} else {
			g.activeSegment = 1
			out[i].Value = 0.0
		}
	}
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
