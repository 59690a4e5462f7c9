package dsp

import "math"

// The tables mirror the fixed resource tables of the original hardware:
// they are computed for a reference rate and describe per-sample phase
// increments and smoothing coefficients, independent of the host rate.
const refSampleRate = 31250.0

const (
	envFrequencySize   = 2048
	portamentoSize     = 512
	sineSize           = 1024
	envFrequencyMaxHz  = 500.0
	envFrequencyMinHz  = 0.03
	portamentoMinCoeff = 1e-4
)

var (
	lutSine         [sineSize + 1]float32
	lutEnvFrequency [envFrequencySize + 1]float32
	lutPortamento   [portamentoSize + 1]float32
)

func init() {
	for i := range lutSine {
		lutSine[i] = float32(math.Sin(2.0 * math.Pi * float64(i) / sineSize))
	}
	span := math.Log(envFrequencyMinHz / envFrequencyMaxHz)
	for i := range lutEnvFrequency {
		t := float64(i) / envFrequencySize
		hz := envFrequencyMaxHz * math.Exp(span*t)
		lutEnvFrequency[i] = float32(hz / refSampleRate)
	}
	for i := range lutPortamento {
		t := float64(i) / portamentoSize
		lutPortamento[i] = float32(math.Exp(math.Log(portamentoMinCoeff) * t))
	}
}

// EnvFrequency maps a time parameter in [0, 1] to a per-sample phase
// increment. The lookup saturates at the table bounds.
func EnvFrequency(rate float32) float32 {
	i := int(rate * envFrequencySize)
	if i < 0 {
		i = 0
	} else if i > envFrequencySize {
		i = envFrequencySize
	}
	return lutEnvFrequency[i]
}

// PortamentoCoefficient maps a portamento parameter in [0, 1] to a one-pole
// coefficient, from instantaneous down to a fraction of a hertz.
func PortamentoCoefficient(rate float32) float32 {
	i := int(rate * portamentoSize)
	if i < 0 {
		i = 0
	} else if i > portamentoSize {
		i = portamentoSize
	}
	return lutPortamento[i]
}

// SineWrap evaluates sin(2*pi*phase) from the wrapping sine table, with
// linear interpolation. phase may exceed 1; only its fractional part is used.
func SineWrap(phase float32) float32 {
	phase -= float32(int(phase))
	if phase < 0 {
		phase += 1.0
	}
	scaled := phase * sineSize
	i := int(scaled)
	f := scaled - float32(i)
	return lutSine[i] + (lutSine[i+1]-lutSine[i])*f
}
