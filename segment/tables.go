package segment

// Process-mode tables for single-segment channels, indexed by
// (type << 2) | (hasTrigger << 1) | bipolar. These are data, not state.
var processFnTable = [16]processFn{
	// RAMP
	(*Generator).processZero,
	(*Generator).processFreeRunningLFO,
	(*Generator).processDecayEnvelope,
	(*Generator).processTapLFO,

	// STEP
	(*Generator).processPortamento,
	(*Generator).processPortamento,
	(*Generator).processSampleAndHold,
	(*Generator).processSampleAndHold,

	// HOLD
	(*Generator).processDelay,
	(*Generator).processDelay,
	(*Generator).processTimedPulseGenerator,
	(*Generator).processGateGenerator,

	// TURING segments are only reachable in advanced mode; in basic mode
	// they stay silent.
	(*Generator).processZero,
	(*Generator).processZero,
	(*Generator).processZero,
	(*Generator).processZero,
}

var advancedProcessFnTable = [16]processFn{
	// RAMP
	(*Generator).processZero,
	(*Generator).processFreeRunningLFO,
	(*Generator).processDecayEnvelope,
	(*Generator).processTapLFO,

	// STEP
	(*Generator).processPortamento,
	(*Generator).processPortamento,
	(*Generator).processSampleAndHold,
	(*Generator).processTrackAndHold,

	// HOLD
	(*Generator).processDelay,
	(*Generator).processDelay,
	(*Generator).processTimedPulseGenerator,
	(*Generator).processGateGenerator,

	// TURING
	(*Generator).processRandom,
	(*Generator).processRandom,
	(*Generator).processTuring,
	(*Generator).processLogistic,
}
