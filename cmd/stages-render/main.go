package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-stages/dsp"
	"github.com/cwbudde/algo-stages/internal/pulsegen"
	"github.com/cwbudde/algo-stages/internal/wavutil"
	"github.com/cwbudde/algo-stages/preset"
	"github.com/cwbudde/algo-stages/segment"
)

func main() {
	presetPath := flag.String("preset", "assets/presets/adsr.json", "Channel preset JSON file path")
	duration := flag.Float64("duration", 4.0, "Render duration in seconds")
	sampleRate := flag.Int("sample-rate", 32000, "Render sample rate in Hz")
	gateFreq := flag.Float64("gate-freq", 2.0, "Gate clock frequency in Hz (0 disables the gate)")
	gatePW := flag.Float64("gate-pw", 0.5, "Gate pulse width in 0..1")
	seed := flag.Uint("seed", 0x21, "Random generator seed")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	channel, err := preset.LoadJSON(*presetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
		os.Exit(1)
	}

	totalFrames := int(float64(*sampleRate) * (*duration))
	if totalFrames < 1 {
		totalFrames = 1
	}

	fmt.Printf("Rendering %d segments for %.2f seconds at %d Hz (preset: %s)...\n",
		len(channel.Configs), *duration, *sampleRate, *presetPath)

	dsp.Rng.Seed(uint32(*seed))

	settings := &segment.Settings{
		SampleRate: float32(*sampleRate),
		Multimode:  channel.Multimode,
	}
	var gen segment.Generator
	gen.Init(settings)
	channel.Apply(&gen)

	var train pulsegen.Train
	if *gateFreq > 0 {
		train.AddFreq(totalFrames, *gateFreq, *gatePW, *sampleRate)
	} else {
		train.AddSilence(totalFrames)
	}
	gateFlags := train.Flags()

	const blockSize = 24
	samples := make([]float32, 0, totalFrames)
	outBlock := make([]segment.Output, blockSize)

	for rendered := 0; rendered < totalFrames; {
		frames := blockSize
		if rendered+frames > totalFrames {
			frames = totalFrames - rendered
		}
		gen.Process(gateFlags[rendered:rendered+frames], outBlock[:frames])
		for _, o := range outBlock[:frames] {
			samples = append(samples, o.Value)
		}
		rendered += frames
	}

	if err := wavutil.WriteMonoWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, totalFrames)
}
