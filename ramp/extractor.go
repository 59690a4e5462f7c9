package ramp

import (
	"github.com/cwbudde/algo-stages/dsp"
)

const (
	historySize         = 8
	maxPatternPeriod    = 8
	pulseWidthTolerance = 0.05
)

type pulse struct {
	onDuration    int
	totalDuration int
	pulseWidth    float32
}

// Extractor turns a gate pulse stream into a phase ramp locked to the clock.
// Below audio rate it predicts the next period from the pulse history; at
// audio rate it glides a frequency accumulator toward the measured period.
type Extractor struct {
	sampleRate   float32
	maxFrequency float32

	audioRatePeriod           float32
	audioRatePeriodHysteresis float32
	minPeriod                 float32
	minPeriodHysteresis       float32

	audioRate       bool
	trainPhase      float32
	maxTrainPhase   float32
	targetFrequency float32
	frequency       float32
	lpCoefficient   float32
	fRatio          float32

	resetCounter  int
	resetInterval float32

	history      [historySize]pulse
	currentPulse int

	averagePulseWidth float32
	apwMatchCount     int

	predictionError [maxPatternPeriod + 1]float32
	predictedPeriod [maxPatternPeriod + 1]float32
}

// Init sets the sample rate in Hz and the maximum recoverable frequency in
// cycles per sample.
func (e *Extractor) Init(sampleRate, maxFrequency float32) {
	e.sampleRate = sampleRate
	e.maxFrequency = maxFrequency
	e.audioRatePeriod = sampleRate / 100.0
	e.audioRatePeriodHysteresis = e.audioRatePeriod
	e.minPeriod = 1.0 / maxFrequency
	e.minPeriodHysteresis = e.minPeriod
	e.Reset()
}

// Reset discards the pulse history and stops the ramp until the next clock.
func (e *Extractor) Reset() {
	e.audioRate = false
	e.trainPhase = 0.0
	e.maxTrainPhase = 1.0
	e.targetFrequency = 0.0
	e.frequency = 0.0
	e.lpCoefficient = 0.5
	e.fRatio = 1.0
	e.resetCounter = 1
	e.resetInterval = 5.0 * e.sampleRate

	p := pulse{
		onDuration:    int(e.sampleRate * 0.25),
		totalDuration: int(e.sampleRate * 0.5),
		pulseWidth:    0.5,
	}
	for i := range e.history {
		e.history[i] = p
	}
	e.currentPulse = 0
	e.history[0].onDuration = 0
	e.history[0].totalDuration = 0

	e.averagePulseWidth = 0.0
	e.apwMatchCount = 0
	for i := range e.predictionError {
		e.predictionError[i] = 50.0
		e.predictedPeriod[i] = e.sampleRate * 0.5
	}
	e.predictionError[0] = 0.0
}

func isWithinTolerance(x, y, tolerance float32) bool {
	return x >= y*(1.0-tolerance) && x <= y*(1.0+tolerance)
}

func (e *Extractor) updateAveragePulseWidth(tolerance float32) {
	cpw := e.history[e.currentPulse].pulseWidth
	if isWithinTolerance(e.averagePulseWidth, cpw, tolerance) {
		if e.apwMatchCount < historySize {
			e.apwMatchCount++
		}
		n := float32(e.apwMatchCount)
		e.averagePulseWidth = ((n-1.0)*e.averagePulseWidth + cpw) / n
	} else {
		e.apwMatchCount = 1
		e.averagePulseWidth = cpw
	}
}

// predictNextPeriod updates every predictor with the period that just ended
// and returns the prediction of the currently best-performing one.
func (e *Extractor) predictNextPeriod() float32 {
	lastPeriod := float32(e.history[e.currentPulse].totalDuration)

	best := 0
	for i := 0; i <= maxPatternPeriod; i++ {
		err := e.predictedPeriod[i] - lastPeriod
		errSq := err * err
		dsp.Slope(&e.predictionError[i], errSq, 0.7, 0.2)

		if i == 0 {
			dsp.OnePole(&e.predictedPeriod[0], lastPeriod, 0.5)
		} else {
			t := e.currentPulse + 1 + historySize - i
			e.predictedPeriod[i] = float32(e.history[t%historySize].totalDuration)
		}

		if e.predictionError[i] < e.predictionError[best] {
			best = i
		}
	}
	return e.predictedPeriod[best]
}

// Process renders len(ramp) samples of phase ramp from the gate flags.
func (e *Extractor) Process(ratio Ratio, gateFlags []dsp.GateFlag, ramp []float32) {
	size := len(ramp)
	if size == 0 {
		return
	}
	trainPhase := e.trainPhase
	maxTrainPhase := e.maxTrainPhase
	arThreshold := e.audioRatePeriodHysteresis
	if ratio.Ratio > 1.0 {
		arThreshold *= ratio.Ratio
	}

	o := 0
	fi := 0
	flags := gateFlags[fi]
	fi++
	for o < size {
		// The previous pulse ends on a rising edge.
		if flags&dsp.GateFlagRising != 0 {
			p := &e.history[e.currentPulse]
			recordPulse := float32(p.totalDuration) < e.resetInterval

			if !recordPulse {
				// The clock stopped for long enough to be treated as lost:
				// restart the train from scratch on this pulse.
				trainPhase = 0.0
				e.resetCounter = ratio.Q
				e.fRatio = ratio.Ratio
				maxTrainPhase = float32(ratio.Q)
				e.frequency = 1.0 / e.predictNextPeriod()
				e.targetFrequency = e.frequency
				e.resetInterval = 4.0 * float32(p.totalDuration)
			} else {
				period := float32(p.totalDuration)
				if period <= arThreshold && period > 0 {
					e.audioRate = true
					e.audioRatePeriodHysteresis = e.audioRatePeriod * 1.1

					e.averagePulseWidth = 0.0
					e.apwMatchCount = 0

					noGlide := e.fRatio != ratio.Ratio
					e.fRatio = ratio.Ratio

					frequency := 1.0 / period
					e.targetFrequency = minf(e.fRatio*frequency, e.maxFrequency)

					upTolerance := (1.02 + 2.0*frequency) * e.frequency
					downTolerance := (0.98 - 2.0*frequency) * e.frequency
					noGlide = noGlide ||
						e.targetFrequency > upTolerance ||
						e.targetFrequency < downTolerance
					if noGlide {
						e.lpCoefficient = 1.0
					} else {
						e.lpCoefficient = period * 0.00001
					}
				} else {
					e.audioRate = false
					e.audioRatePeriodHysteresis = e.audioRatePeriod
					if period <= e.minPeriodHysteresis {
						e.minPeriodHysteresis = e.minPeriod * 1.05
						e.frequency = 1.0 / maxf(period, 1.0/e.sampleRate)
						e.averagePulseWidth = 0.0
						e.apwMatchCount = 0
					} else {
						// Check whether the pulse width has been consistent
						// over the past pulses.
						e.minPeriodHysteresis = e.minPeriod
						p.pulseWidth = float32(p.onDuration) / float32(p.totalDuration)
						e.updateAveragePulseWidth(pulseWidthTolerance)
						if p.onDuration < 32 {
							e.averagePulseWidth = 0.0
							e.apwMatchCount = 0
						}
						e.frequency = 1.0 / e.predictNextPeriod()
					}
					// Reset the phase according to the divider ratio.
					e.resetCounter--
					if e.resetCounter == 0 {
						trainPhase = 0.0
						e.resetCounter = ratio.Q
						e.fRatio = ratio.Ratio
						maxTrainPhase = float32(ratio.Q)
					} else {
						expected := maxTrainPhase - float32(e.resetCounter)
						warp := expected - trainPhase + 1.0
						e.frequency *= maxf(warp, 0.01)
					}
					e.targetFrequency = e.fRatio * e.frequency
					e.resetInterval = maxf(4.0/e.targetFrequency, e.sampleRate*3.0)
				}

				e.currentPulse = (e.currentPulse + 1) % historySize
			}
			e.history[e.currentPulse].onDuration = 0
			e.history[e.currentPulse].totalDuration = 0
		}

		p := &e.history[e.currentPulse]
		if e.audioRate {
			for {
				p.totalDuration++
				if flags&dsp.GateFlagFalling != 0 {
					p.onDuration = p.totalDuration - 1
				}
				dsp.OnePole(&e.frequency, e.targetFrequency, e.lpCoefficient)
				trainPhase += e.frequency
				if trainPhase > 1.0 {
					trainPhase -= 1.0
					if float32(p.totalDuration)/e.fRatio > 1.5/e.targetFrequency {
						// The pulse train has stopped: freeze at the top.
						trainPhase = 1.0
						e.frequency = 0.0
						e.targetFrequency = 0.0
					}
				}
				ramp[o] = trainPhase
				o++
				if o >= size {
					break
				}
				flags = gateFlags[fi]
				fi++
				if flags&dsp.GateFlagRising != 0 {
					break
				}
			}
		} else {
			for {
				p.totalDuration++
				if flags&dsp.GateFlagFalling != 0 {
					p.onDuration = p.totalDuration - 1
					if e.apwMatchCount >= historySize {
						// The pulse width is known: recompute the frequency
						// so the ramp reaches the next integer exactly on
						// the expected edge.
						tOn := float32(p.onDuration)
						next := maxTrainPhase - float32(e.resetCounter) + 1.0
						pw := e.averagePulseWidth
						e.frequency = maxf(next-trainPhase, 0.0) * pw / ((1.0 - pw) * tOn)
					}
				}
				trainPhase += e.frequency
				if trainPhase >= maxTrainPhase {
					trainPhase = maxTrainPhase
				}

				phase := trainPhase * e.fRatio
				phase -= float32(int32(phase))
				ramp[o] = phase
				o++
				if o >= size {
					break
				}
				flags = gateFlags[fi]
				fi++
				if flags&dsp.GateFlagRising != 0 {
					break
				}
			}
		}
	}
	e.trainPhase = trainPhase
	e.maxTrainPhase = maxTrainPhase
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
