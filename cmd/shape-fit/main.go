package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/cwbudde/algo-stages/analysis"
	"github.com/cwbudde/algo-stages/dsp"
	"github.com/cwbudde/algo-stages/internal/wavutil"
	"github.com/cwbudde/algo-stages/preset"
	"github.com/cwbudde/algo-stages/segment"
	"github.com/cwbudde/mayfly"
)

func main() {
	reference := flag.String("reference", "", "Reference WAV file to match (required)")
	sampleRate := flag.Int("sample-rate", 32000, "Candidate render sample rate in Hz")
	duration := flag.Float64("duration", 4.0, "Candidate render duration in seconds")
	pop := flag.Int("mayfly-pop", 10, "Male and female population size")
	iters := flag.Int("mayfly-iters", 40, "Optimizer iterations")
	seed := flag.Int64("seed", 1, "Optimizer random seed")
	outputPreset := flag.String("output-preset", "fitted.json", "Fitted preset JSON path")
	flag.Parse()

	if *reference == "" {
		fmt.Fprintln(os.Stderr, "missing -reference")
		os.Exit(1)
	}

	ref, refRate, err := wavutil.ReadWAVMono(*reference)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading reference %q: %v\n", *reference, err)
		os.Exit(1)
	}
	ref, err = wavutil.ResampleIfNeeded(ref, refRate, *sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resampling reference: %v\n", err)
		os.Exit(1)
	}

	frames := int(float64(*sampleRate) * (*duration))
	if frames > len(ref) {
		frames = len(ref)
	}
	if frames < 512 {
		fmt.Fprintln(os.Stderr, "reference too short")
		os.Exit(1)
	}
	ref = ref[:frames]

	fmt.Printf("Fitting LFO rate/shape against %s (%d frames at %d Hz)...\n",
		*reference, frames, *sampleRate)

	bestScore := 2.0
	bestKnobs := []float64{0.5, 0.5}
	evals := 0

	cfg := mayfly.NewDESMAConfig()
	cfg.ProblemSize = 2
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = *iters
	cfg.NPop = *pop
	cfg.NPopF = *pop
	cfg.NC = 2 * *pop
	cfg.NM = 1
	cfg.Rand = rand.New(rand.NewSource(*seed))
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		evals++
		cand := renderLFO(float32(pos[0]), float32(pos[1]), *sampleRate, frames)
		score := analysis.Compare(ref, cand, *sampleRate).Score
		if score < bestScore {
			bestScore = score
			bestKnobs = []float64{pos[0], pos[1]}
			fmt.Printf("eval %d: score %.5f (primary=%.4f secondary=%.4f)\n",
				evals, score, pos[0], pos[1])
		}
		return score
	}

	if _, err := runMayfly(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Optimization failed: %v\n", err)
		os.Exit(1)
	}

	fitted := &preset.File{
		HasTrigger: false,
		Multimode:  "normal",
		Segments: []preset.SegmentSetting{
			{Type: "ramp", Bipolar: true, Range: "default"},
		},
		Params: []preset.ParamSetting{
			{Primary: float32(bestKnobs[0]), Secondary: float32(bestKnobs[1])},
		},
	}
	if err := preset.SaveJSON(*outputPreset, fitted); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing preset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Best score %.5f after %d evals; wrote %s\n", bestScore, evals, *outputPreset)
}

// renderLFO renders a free-running bipolar LFO with the given rate and shape
// controls.
func renderLFO(primary, secondary float32, sampleRate, frames int) []float64 {
	settings := &segment.Settings{SampleRate: float32(sampleRate)}
	var gen segment.Generator
	gen.Init(settings)
	gen.Configure(false, []segment.Configuration{
		{Type: segment.TypeRamp, Bipolar: true},
	})
	gen.SetSegmentParameters(0, primary, secondary)

	const blockSize = 24
	gate := make([]dsp.GateFlag, blockSize)
	block := make([]segment.Output, blockSize)
	out := make([]float64, 0, frames)
	for rendered := 0; rendered < frames; {
		n := blockSize
		if rendered+n > frames {
			n = frames - rendered
		}
		gen.Process(gate[:n], block[:n])
		for _, o := range block[:n] {
			out = append(out, float64(o.Value))
		}
		rendered += n
	}
	return out
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
