package segment

import (
	"github.com/cwbudde/algo-stages/dsp"
	"github.com/cwbudde/algo-stages/ramp"
)

type processFn func(g *Generator, gateFlags []dsp.GateFlag, out []Output)

// segmentRuntime is the wired form of one configured segment. The control
// indirections point into the generator-owned constant, parameter and
// register arenas and stay valid until the next Configure.
type segmentRuntime struct {
	start      *float32 // nil: use the value reached by the previous segment
	end        *float32
	time       *float32 // nil: the phase holds
	curve      *float32
	portamento *float32
	phase      *float32 // nil: use the internal phase accumulator

	ifRising   int // segment to go to on a rising edge, -1 to stay
	ifFalling  int
	ifComplete int

	bipolar   bool
	retrig    bool
	advanceTM bool
	rangeSel  Range

	shiftRegister uint16
	registerValue float32
}

// Generator renders one channel. Configure wires the segment graph and
// selects a process mode; Process renders blocks of samples against it.
type Generator struct {
	settings  *Settings
	processFn processFn

	phase float32
	aux   float32

	zero float32
	half float32
	one  float32

	start   float32
	value   float32
	lp      float32
	primary float32

	activeSegment    int
	monitoredSegment int
	retrigDelay      int

	segments    [MaxNumSegments + 1]segmentRuntime
	parameters  [MaxNumSegments]Parameters
	numSegments int

	rampExtractor ramp.Extractor
	rampQuantizer ramp.HysteresisQuantizer
	delayLine     dsp.DelayLine
	gateDelay     dsp.GateDelay
	shDelay       int
}

// Init binds the externally-owned settings and zeroes all runtime state.
func (g *Generator) Init(settings *Settings) {
	g.settings = settings
	g.processFn = (*Generator).processMultiSegment

	g.phase = 0.0
	g.aux = 0.0

	g.zero = 0.0
	g.half = 0.5
	g.one = 1.0

	g.start = 0.0
	g.value = 0.0
	g.lp = 0.0

	g.monitoredSegment = 0
	g.activeSegment = 0
	g.retrigDelay = 0
	g.primary = 0.0

	for i := range g.segments {
		g.segments[i] = segmentRuntime{
			start:         &g.zero,
			end:           &g.zero,
			time:          &g.zero,
			curve:         &g.half,
			portamento:    &g.zero,
			phase:         nil,
			ifRising:      0,
			ifFalling:     0,
			ifComplete:    0,
			bipolar:       false,
			retrig:        true,
			shiftRegister: dsp.Rng.Uint16(),
			registerValue: dsp.Rng.Float(),
		}
	}
	for i := range g.parameters {
		g.parameters[i] = Parameters{}
	}

	g.rampExtractor.Init(settings.SampleRate, 1000.0/settings.SampleRate)
	g.rampQuantizer.Init()
	g.delayLine.Init()
	g.gateDelay.Init()
	g.shDelay = sampleAndHoldDelay(settings.SampleRate)

	g.numSegments = 0
}

// SetSegmentParameters updates the two controls of segment i for the next
// block.
func (g *Generator) SetSegmentParameters(i int, primary, secondary float32) {
	g.parameters[i] = Parameters{Primary: primary, Secondary: secondary}
}

// SetMonitoredSegment selects the upstream segment observed by ProcessSlave.
func (g *Generator) SetMonitoredSegment(i int) {
	g.monitoredSegment = i
}

// ActiveSegment returns the index of the segment being rendered; the value
// equals the segment count while the generator rests at the sentinel.
func (g *Generator) ActiveSegment() int {
	return g.activeSegment
}

// Phase returns the current internal phase.
func (g *Generator) Phase() float32 {
	return g.phase
}

// RegisterValue returns the scaled shift register of segment i.
func (g *Generator) RegisterValue(i int) float32 {
	return g.segments[i].registerValue
}

// Process renders len(out) samples from the gate flag stream. gateFlags and
// out must have equal length.
func (g *Generator) Process(gateFlags []dsp.GateFlag, out []Output) {
	g.processFn(g, gateFlags, out)
}

func warpPhase(t, curve float32) float32 {
	curve -= 0.5
	flip := curve < 0.0
	if flip {
		t = 1.0 - t
	}
	a := 128.0 * curve * curve
	t = (1.0 + a) * t / (1.0 + a*t)
	if flip {
		t = 1.0 - t
	}
	return t
}

func turingSteps(secondary float32) int {
	steps := int(15.0*secondary + 1.0)
	if steps < 1 {
		steps = 1
	} else if steps > 16 {
		steps = 16
	}
	return steps
}

// advanceTM rotates a Turing-style shift register: the bit about to leave
// the window of the given length is recycled into the top, XORed with a coin
// flip drawn with the given probability. The probability locks at the
// extremes so fully-closed and fully-open settings freeze the pattern.
func advanceTM(steps int, prob float32, shiftRegister *uint16, registerValue *float32, bipolar bool) {
	sr := *shiftRegister
	copiedBit := (sr << (steps - 1)) & (1 << 15)
	p := prob
	if p < 0.001 {
		p = 0.0
	} else if p > 0.999 {
		p = 1.1
	}
	var coin uint16
	if dsp.Rng.Float() < p {
		coin = 1 << 15
	}
	mutated := copiedBit ^ coin
	sr = (sr >> 1) | mutated
	*shiftRegister = sr
	*registerValue = float32(sr) / 65535.0
	if bipolar {
		*registerValue = (10.0 / 8.0) * (*registerValue - 0.5)
	}
}

func (g *Generator) processMultiSegment(gateFlags []dsp.GateFlag, out []Output) {
	phase := g.phase
	start := g.start
	lp := g.lp
	value := g.value

	for i := range out {
		s := &g.segments[g.activeSegment]

		if s.time != nil {
			phase += dsp.EnvFrequency(*s.time)
		}

		complete := phase >= 1.0
		if complete {
			phase = 1.0
		}
		ph := phase
		if s.phase != nil {
			ph = *s.phase
		}
		value = dsp.Crossfade(start, *s.end, warpPhase(ph, *s.curve))

		dsp.OnePole(&lp, value, dsp.PortamentoCoefficient(*s.portamento))

		// Decide what to do next.
		flags := gateFlags[i]
		goToSegment := -1
		if flags&dsp.GateFlagRising != 0 && s.retrig {
			goToSegment = s.ifRising
		} else if flags&dsp.GateFlagFalling != 0 {
			goToSegment = s.ifFalling
		} else if complete {
			goToSegment = s.ifComplete
		}

		if goToSegment != -1 {
			if s.advanceTM {
				steps := turingSteps(g.parameters[g.activeSegment].Secondary)
				prob := g.parameters[g.activeSegment].Primary
				cur := &g.segments[g.activeSegment]
				advanceTM(steps, prob, &cur.shiftRegister, &cur.registerValue, s.bipolar)
			}
			phase = 0.0
			destination := &g.segments[goToSegment]
			if destination.start != nil {
				start = *destination.start
			} else if goToSegment != g.activeSegment {
				start = value
			}
			g.activeSegment = goToSegment
		}

		out[i] = Output{Value: lp, Phase: phase, Segment: uint8(g.activeSegment)}
	}
	g.phase = phase
	g.start = start
	g.lp = lp
	g.value = value
}

// isStep reports whether a segment behaves as a sequencer step. Looping
// Turing segments are holds.
func isStep(c Configuration) bool {
	return c.Type == TypeStep || (c.Type == TypeTuring && !c.Loop)
}

// Configure rebuilds the segment graph for the given configuration and
// selects the process mode. Runtime state other than the active segment is
// carried over.
func (g *Generator) Configure(hasTrigger bool, configs []Configuration) {
	numSegments := len(configs)
	if numSegments == 1 {
		g.configureSingleSegment(hasTrigger, configs[0])
		return
	}
	g.numSegments = numSegments

	g.processFn = (*Generator).processMultiSegment

	// A first pass to collect loop points, and check for STEP segments.
	loopStart := -1
	loopEnd := -1
	hasStepSegments := false
	lastSegment := numSegments - 1
	firstRampSegment := -1

	for i := 0; i <= lastSegment; i++ {
		hasStepSegments = hasStepSegments || isStep(configs[i])
		if configs[i].Loop {
			if loopStart == -1 {
				loopStart = i
			}
			loopEnd = i
		}
		if configs[i].Type == TypeRamp && firstRampSegment == -1 {
			firstRampSegment = i
		}
	}

	hasStepSegmentsInsideLoop := false
	if loopStart != -1 {
		for i := loopStart; i <= loopEnd; i++ {
			if isStep(configs[i]) {
				hasStepSegmentsInsideLoop = true
				break
			}
		}
	}

	for i := 0; i <= lastSegment; i++ {
		s := &g.segments[i]
		s.bipolar = configs[i].Bipolar
		s.rangeSel = configs[i].Range
		s.retrig = true
		s.advanceTM = false
		switch {
		case configs[i].Type == TypeRamp:
			// For ramps, bipolar means don't retrig.
			s.retrig = !s.bipolar
			s.start = nil
			s.time = &g.parameters[i].Primary
			s.curve = &g.parameters[i].Secondary
			s.portamento = &g.zero
			s.phase = nil

			switch {
			case i == lastSegment:
				s.end = &g.zero
			case configs[i+1].Type == TypeTuring:
				s.end = &g.segments[i+1].registerValue
			case configs[i+1].Type != TypeRamp:
				s.end = &g.parameters[i+1].Primary
			case i == firstRampSegment:
				s.end = &g.one
			default:
				s.end = &g.parameters[i].Secondary
				s.curve = &g.half
			}
		default:
			s.start = &g.parameters[i].Primary
			s.end = s.start
			s.curve = &g.half
			switch configs[i].Type {
			case TypeStep:
				s.portamento = &g.parameters[i].Secondary
				s.time = nil
				// Sample if there is a loop of length 1 on this segment.
				// Otherwise track.
				if i == loopStart && i == loopEnd {
					s.phase = &g.zero
				} else {
					s.phase = &g.one
				}
			case TypeTuring:
				s.start = &s.registerValue
				s.end = s.start
				s.advanceTM = true
				s.portamento = &g.zero
				s.time = nil
				s.phase = &g.zero
			default:
				s.portamento = &g.zero
				// Hold if there's a loop of length 1 on this segment.
				// Otherwise, use the programmed time.
				if i == loopStart && i == loopEnd {
					s.time = nil
				} else {
					s.time = &g.parameters[i].Secondary
				}
				s.phase = &g.one // Track the changes on the slider.
			}
		}

		if i == loopEnd {
			s.ifComplete = loopStart
		} else {
			s.ifComplete = i + 1
		}
		if loopEnd == -1 || loopEnd == lastSegment || hasStepSegments {
			s.ifFalling = -1
		} else {
			s.ifFalling = loopEnd + 1
		}
		s.ifRising = 0

		if hasStepSegments {
			if !hasStepSegmentsInsideLoop && i >= loopStart && i <= loopEnd {
				s.ifRising = (loopEnd + 1) % numSegments
			} else {
				// Find the next STEP segment.
				followLoop := loopEnd != -1
				nextStep := i
				for !isStep(configs[nextStep]) {
					nextStep++
					if followLoop && nextStep == loopEnd+1 {
						nextStep = loopStart
						followLoop = false
					}
					if nextStep >= numSegments {
						nextStep = numSegments - 1
						break
					}
				}
				if nextStep == loopEnd {
					s.ifRising = loopStart
				} else {
					s.ifRising = (nextStep + 1) % numSegments
				}
			}
		}
	}

	sentinel := &g.segments[numSegments]
	sentinel.start = g.segments[numSegments-1].end
	sentinel.end = sentinel.start
	sentinel.time = &g.zero
	sentinel.curve = &g.half
	sentinel.portamento = &g.zero
	sentinel.phase = nil
	sentinel.retrig = true
	sentinel.advanceTM = false
	sentinel.ifRising = 0
	sentinel.ifFalling = -1
	if loopEnd == lastSegment {
		sentinel.ifComplete = 0
	} else {
		sentinel.ifComplete = -1
	}

	// After changing the state of the module, we go to the sentinel.
	g.activeSegment = numSegments
}

func (g *Generator) configureSingleSegment(hasTrigger bool, c Configuration) {
	g.numSegments = 1

	i := int(c.Type) << 2
	if hasTrigger {
		i |= 2
	}
	if c.Bipolar {
		i |= 1
	}
	if g.settings.Multimode == MultimodeAdvanced {
		g.processFn = advancedProcessFnTable[i]
	} else {
		g.processFn = processFnTable[i]
	}

	s := &g.segments[0]
	s.bipolar = c.Bipolar
	s.rangeSel = c.Range
	if c.Type == TypeRamp {
		s.retrig = !c.Bipolar
	} else {
		s.retrig = true
	}
	g.activeSegment = 0
}
