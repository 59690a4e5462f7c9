package segment

import (
	"testing"

	"github.com/cwbudde/algo-stages/dsp"
)

func TestDecayEnvelopeMonotonic(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeRamp}})
	g.SetSegmentParameters(0, 0.3, 0.5)

	// Let the power-on envelope run out first.
	render(g, silentFlags(8000), 24)

	const r = 100
	levels := gatePattern(r, 4000, 64, 1)
	out := render(g, flagsFromLevels(levels), 24)

	if out[r].Value < 0.95 {
		t.Fatalf("envelope did not restart near 1 on the trigger: %f", out[r].Value)
	}
	for i := r + 1; i < len(out); i++ {
		if out[i].Value > out[i-1].Value+1e-6 {
			t.Fatalf("decay not monotonic at %d: %f > %f", i, out[i].Value, out[i-1].Value)
		}
	}
	last := out[len(out)-1]
	if last.Value > 0.01 {
		t.Errorf("envelope floor not reached: %f", last.Value)
	}
	if last.Phase != 1.0 {
		t.Errorf("phase should rest at 1, got %f", last.Phase)
	}
	if last.Segment != 1 {
		t.Errorf("expected idle segment 1, got %d", last.Segment)
	}
}

func TestGateGeneratorFollowsGate(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeHold, Bipolar: true}})
	g.SetSegmentParameters(0, 0.5, 1.0)

	// One block to settle the block interpolator on the primary value.
	render(g, silentFlags(64), 24)

	levels := gatePattern(0, 200, 100, 10)
	out := render(g, flagsFromLevels(levels), 24)

	for i := range out {
		if levels[i] {
			if absf32(out[i].Value-0.5) > 1e-4 {
				t.Fatalf("sample %d: gate high, value %f, want 0.5", i, out[i].Value)
			}
			if out[i].Segment != 0 {
				t.Fatalf("sample %d: gate high, segment %d", i, out[i].Segment)
			}
		} else {
			if absf32(out[i].Value) > 1e-6 {
				t.Fatalf("sample %d: gate low, value %f, want 0", i, out[i].Value)
			}
			if out[i].Segment != 1 {
				t.Fatalf("sample %d: gate low, segment %d", i, out[i].Segment)
			}
		}
	}
}

func TestSampleAndHoldDelayedCapture(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeStep}})
	g.SetSegmentParameters(0, 0.7, 0.0)

	// Settle the interpolator and fill the gate delay ring with silence.
	render(g, silentFlags(256), 24)

	delay := sampleAndHoldDelay(testSampleRate)
	const r = 100
	levels := gatePattern(r, 2000, 32, 1)
	out := render(g, flagsFromLevels(levels), 24)

	if absf32(out[r+delay-2].Value) > 0.01 {
		t.Fatalf("value captured too early: %f at %d", out[r+delay-2].Value, r+delay-2)
	}
	if absf32(out[r+delay].Value-0.7) > 1e-3 {
		t.Fatalf("value not captured at the delayed edge: %f", out[r+delay].Value)
	}
	if absf32(out[len(out)-1].Value-0.7) > 1e-3 {
		t.Fatalf("held value drifted: %f", out[len(out)-1].Value)
	}
}

func TestTrackAndHold(t *testing.T) {
	g := newTestGenerator(MultimodeAdvanced)
	g.Configure(true, []Configuration{{Type: TypeStep, Bipolar: true}})
	g.SetSegmentParameters(0, 0.4, 0.0)

	delay := sampleAndHoldDelay(testSampleRate)

	// Track while the delayed gate is high.
	levels := gatePattern(64, 1000, 1000-64, 1)
	out := render(g, flagsFromLevels(levels), 24)
	if absf32(out[500].Value-0.4) > 1e-3 {
		t.Fatalf("did not track while gate high: %f", out[500].Value)
	}

	// Hold through a low span even when the parameter moves.
	g.SetSegmentParameters(0, 0.9, 0.0)
	out = render(g, silentFlags(1000), 24)
	if absf32(out[999].Value-0.4) > 1e-3 {
		t.Fatalf("did not hold while gate low: %f", out[999].Value)
	}

	// Tracking resumes once the new gate clears the realignment delay.
	levels = gatePattern(0, 1000, 1000, 1)
	out = render(g, flagsFromLevels(levels), 24)
	if absf32(out[delay+200].Value-0.9) > 1e-3 {
		t.Fatalf("did not resume tracking: %f", out[delay+200].Value)
	}
}

func TestTuringRotation(t *testing.T) {
	dsp.Rng.Seed(42)
	g := newTestGenerator(MultimodeAdvanced)
	g.Configure(true, []Configuration{{Type: TypeTuring}})
	// Probability 0 locks the pattern; secondary 1 spans the full register.
	g.SetSegmentParameters(0, 0.0, 1.0)

	initial := g.segments[0].shiftRegister
	sr := initial
	for pulse := 0; pulse < 16; pulse++ {
		levels := gatePattern(10, 90, 45, 1)
		render(g, flagsFromLevels(levels), 24)

		want := (sr >> 1) | ((sr & 1) << 15)
		got := g.segments[0].shiftRegister
		if got != want {
			t.Fatalf("pulse %d: register %04x, want rotation %04x", pulse, got, want)
		}
		sr = got

		wantValue := float32(got) / 65535.0
		if absf32(g.RegisterValue(0)-wantValue) > 1e-6 {
			t.Fatalf("pulse %d: register value %f, want %f", pulse, g.RegisterValue(0), wantValue)
		}
	}
	if sr != initial {
		t.Fatalf("register did not return to %04x after 16 rotations: %04x", initial, sr)
	}
}

func TestTuringTopBitLockedAtSingleStep(t *testing.T) {
	dsp.Rng.Seed(7)
	g := newTestGenerator(MultimodeAdvanced)
	g.Configure(true, []Configuration{{Type: TypeTuring}})
	// steps = 1: the recycled bit is the top bit itself.
	g.SetSegmentParameters(0, 0.0, 0.0)

	top := g.segments[0].shiftRegister & 0x8000
	levels := gatePattern(10, 100, 50, 12)
	render(g, flagsFromLevels(levels), 24)
	if g.segments[0].shiftRegister&0x8000 != top {
		t.Fatalf("top bit changed at probability 0 with steps=1")
	}
}

func TestFreeRunningLFOFrequency(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(false, []Configuration{{Type: TypeRamp, Bipolar: true}})
	g.SetSegmentParameters(0, 0.5, 0.5)

	out := render(g, silentFlags(10*testSampleRate), 24)
	wraps := countPhaseWraps(out)
	// 2.0439497 Hz for 10 seconds.
	if wraps < 19 || wraps > 22 {
		t.Fatalf("free LFO cycles in 10 s: got %d, want about 20", wraps)
	}
}

func TestFreeRunningLFORangeFast(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(false, []Configuration{{Type: TypeRamp, Bipolar: true, Range: RangeFast}})
	g.SetSegmentParameters(0, 0.5, 0.5)

	out := render(g, silentFlags(2*testSampleRate), 24)
	wraps := countPhaseWraps(out)
	// 64x the center frequency: about 130.8 Hz for 2 seconds.
	if wraps < 245 || wraps > 280 {
		t.Fatalf("fast LFO cycles in 2 s: got %d, want about 262", wraps)
	}
}

func TestFreeRunningLFOFastCap(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(false, []Configuration{{Type: TypeRamp, Bipolar: true, Range: RangeFast}})
	// Far above the cap: the frequency saturates at 7040 Hz.
	g.SetSegmentParameters(0, 1.5, 0.5)

	out := render(g, silentFlags(testSampleRate/4), 24)
	wraps := countPhaseWraps(out)
	want := 7040.0 / 4.0
	if float64(wraps) < want*0.95 || float64(wraps) > want*1.05 {
		t.Fatalf("capped LFO cycles in 0.25 s: got %d, want about %.0f", wraps, want)
	}
}

func TestFreeRunningLFORangeRatios(t *testing.T) {
	measure := func(rangeSel Range, multimode Multimode) float32 {
		g := newTestGenerator(multimode)
		g.Configure(false, []Configuration{{Type: TypeRamp, Bipolar: true, Range: rangeSel}})
		g.SetSegmentParameters(0, 0.5, 0.5)
		out := render(g, silentFlags(2000), 24)
		// The phase advances linearly between wraps.
		return (out[1500].Phase - out[1000].Phase) / 500.0
	}

	base := measure(RangeDefault, MultimodeNormal)
	slow := measure(RangeSlow, MultimodeNormal)
	slowMode := measure(RangeDefault, MultimodeSlowLFO)

	if ratio := base / slow; ratio < 15.8 || ratio > 16.2 {
		t.Errorf("slow range ratio: got %f, want 16", ratio)
	}
	if ratio := base / slowMode; ratio < 7.9 || ratio > 8.1 {
		t.Errorf("slow multimode ratio: got %f, want 8", ratio)
	}
}

func TestTapLFOLocksToClock(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeRamp, Bipolar: true}})
	g.SetSegmentParameters(0, 0.5, 0.5)

	const period = 1500
	levels := gatePattern(0, period, 500, 40)
	out := render(g, flagsFromLevels(levels), 24)

	// Collect ramp reset positions in the converged tail.
	var wraps []int
	for i := 20*period + 1; i < len(out); i++ {
		if out[i].Phase < out[i-1].Phase-0.5 {
			wraps = append(wraps, i)
		}
	}
	if len(wraps) < 10 {
		t.Fatalf("expected locked ramp resets, got %d", len(wraps))
	}
	for i := 1; i < len(wraps); i++ {
		interval := wraps[i] - wraps[i-1]
		if absf64(float64(interval-period)) > float64(period)*0.01 {
			t.Fatalf("tap LFO period %d, want %d within 1%%", interval, period)
		}
	}
}

func TestDelayHalfSecond(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(false, []Configuration{{Type: TypeHold}})
	g.SetSegmentParameters(0, 0.0, 0.5)

	render(g, silentFlags(2000), 24)

	// Step the input and find when the step emerges from the line.
	g.SetSegmentParameters(0, 0.8, 0.5)
	out := render(g, silentFlags(20000), 24)

	crossing := -1
	for i := range out {
		if out[i].Value > 0.4 {
			crossing = i
			break
		}
	}
	want := testSampleRate / 2
	if crossing < 0 {
		t.Fatalf("delayed step never emerged")
	}
	if absf64(float64(crossing-want)) > float64(want)*0.02 {
		t.Fatalf("delay length %d samples, want about %d", crossing, want)
	}

	// The auxiliary phase reports the delay period on the segment output.
	transitions := 0
	for i := 1; i < len(out); i++ {
		if out[i].Segment != out[i-1].Segment {
			transitions++
		}
	}
	if transitions < 2 {
		t.Errorf("expected delay-period square on the segment output, got %d transitions", transitions)
	}
}

func TestTimedPulse(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeHold}})
	g.SetSegmentParameters(0, 0.6, 0.3)

	// Run the startup pulse out.
	render(g, silentFlags(8000), 24)

	const r = 50
	levels := gatePattern(r, 6000, 40, 1)
	out := render(g, flagsFromLevels(levels), 24)

	if absf32(out[r].Value-0.6) > 1e-3 {
		t.Fatalf("pulse did not start on the trigger: %f", out[r].Value)
	}
	if absf32(out[r+500].Value-0.6) > 1e-3 {
		t.Fatalf("pulse did not hold: %f", out[r+500].Value)
	}
	if out[r+3000].Value != 0.0 {
		t.Fatalf("pulse did not terminate: %f", out[r+3000].Value)
	}
}

func TestTimedPulseRetrigTooth(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeHold}})
	g.SetSegmentParameters(0, 0.6, 0.5)

	render(g, silentFlags(16000), 24)

	// Two triggers close together: the second lands while the output is
	// high and must cut a short notch.
	const r1 = 50
	const r2 = r1 + 300
	levels := make([]bool, 4000)
	for i := 0; i < 40; i++ {
		levels[r1+i] = true
		levels[r2+i] = true
	}
	out := render(g, flagsFromLevels(levels), 24)

	if absf32(out[r1+100].Value-0.6) > 1e-3 {
		t.Fatalf("first pulse not high: %f", out[r1+100].Value)
	}
	if out[r2+5].Value != 0.0 {
		t.Fatalf("retrigger tooth missing: %f", out[r2+5].Value)
	}
	if absf32(out[r2+40].Value-0.6) > 1e-3 {
		t.Fatalf("output did not return after the tooth: %f", out[r2+40].Value)
	}
}

func TestPortamentoSmoothing(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(false, []Configuration{{Type: TypeStep}})
	g.SetSegmentParameters(0, 0.5, 0.6)

	out := render(g, silentFlags(8000), 24)
	prev := float32(-1.0)
	for i, o := range out {
		if o.Value < prev-1e-6 {
			t.Fatalf("portamento not monotonic at %d", i)
		}
		prev = o.Value
	}
	if absf32(out[len(out)-1].Value-0.5) > 1e-2 {
		t.Fatalf("portamento did not converge: %f", out[len(out)-1].Value)
	}
}

func TestRandomSteppedLFO(t *testing.T) {
	for _, tt := range []struct {
		name     string
		rangeSel Range
	}{
		{"Default", RangeDefault},
		// The stepped random rate derives from the primary alone; the range
		// setting has no effect on it.
		{"Fast", RangeFast},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dsp.Rng.Seed(3)
			g := newTestGenerator(MultimodeAdvanced)
			g.Configure(false, []Configuration{{Type: TypeTuring, Range: tt.rangeSel}})
			g.SetSegmentParameters(0, 0.7, 0.0)

			out := render(g, silentFlags(2*testSampleRate), 24)
			changes := 0
			for i := 1; i < len(out); i++ {
				if absf32(out[i].Value-out[i-1].Value) > 1e-6 {
					changes++
				}
				if out[i].Value < 0.0 || out[i].Value >= 1.0 {
					t.Fatalf("stepped value out of range at %d: %f", i, out[i].Value)
				}
			}
			// About 6.2 Hz of new values over 2 seconds, whatever the range.
			if changes < 5 || changes > 25 {
				t.Fatalf("stepped LFO drew %d values in 2 s, want about 12", changes)
			}
		})
	}
}

func TestLogisticBounded(t *testing.T) {
	dsp.Rng.Seed(9)
	g := newTestGenerator(MultimodeAdvanced)
	g.Configure(true, []Configuration{{Type: TypeTuring, Bipolar: true}})
	g.SetSegmentParameters(0, 1.0, 0.0)

	levels := gatePattern(10, 100, 50, 200)
	out := render(g, flagsFromLevels(levels), 24)
	for i, o := range out {
		if o.Value < -0.65 || o.Value > 0.65 {
			t.Fatalf("logistic output out of range at %d: %f", i, o.Value)
		}
	}
}

func TestBasicModeTuringIsSilent(t *testing.T) {
	g := newTestGenerator(MultimodeNormal)
	g.Configure(true, []Configuration{{Type: TypeTuring}})
	g.SetSegmentParameters(0, 0.7, 0.5)

	levels := gatePattern(10, 100, 50, 20)
	out := render(g, flagsFromLevels(levels), 24)
	for i, o := range out {
		if o.Value != 0.0 {
			t.Fatalf("basic-mode turing emitted %f at %d", o.Value, i)
		}
		if o.Segment != 1 {
			t.Fatalf("basic-mode turing segment %d at %d", o.Segment, i)
		}
	}
}

func TestOutputInvariants(t *testing.T) {
	configs := [][]Configuration{
		{{Type: TypeRamp}},
		{{Type: TypeRamp, Bipolar: true}},
		{{Type: TypeStep}},
		{{Type: TypeHold}},
		{{Type: TypeHold, Bipolar: true}},
		{{Type: TypeTuring}},
		{{Type: TypeRamp}, {Type: TypeHold, Loop: true}, {Type: TypeRamp}},
		{{Type: TypeRamp}, {Type: TypeStep}, {Type: TypeTuring}},
	}
	for ci, cfg := range configs {
		for _, hasTrigger := range []bool{false, true} {
			g := newTestGenerator(MultimodeAdvanced)
			g.Configure(hasTrigger, cfg)
			for i := range cfg {
				g.SetSegmentParameters(i, 0.4, 0.6)
			}

			dsp.Rng.Seed(uint32(ci + 1))
			levels := make([]bool, 20000)
			high := false
			for i := range levels {
				if dsp.Rng.Float() < 0.002 {
					high = !high
				}
				levels[i] = high
			}
			out := render(g, flagsFromLevels(levels), 24)
			for i, o := range out {
				if o.Phase < 0.0 || o.Phase > 1.0 {
					t.Fatalf("config %d trigger=%v: phase out of range at %d: %f", ci, hasTrigger, i, o.Phase)
				}
				if int(o.Segment) > len(cfg) {
					t.Fatalf("config %d trigger=%v: segment out of range at %d: %d", ci, hasTrigger, i, o.Segment)
				}
			}
		}
	}
}
