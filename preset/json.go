// Package preset loads channel configurations from JSON files.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-stages/segment"
)

// File is the JSON schema for channel presets.
type File struct {
	HasTrigger bool             `json:"has_trigger"`
	Multimode  string           `json:"multimode"`
	Segments   []SegmentSetting `json:"segments"`
	Params     []ParamSetting   `json:"params"`
}

// SegmentSetting describes one segment entry in a preset file.
type SegmentSetting struct {
	Type    string `json:"type"`
	Bipolar bool   `json:"bipolar"`
	Loop    bool   `json:"loop"`
	Range   string `json:"range"`
}

// ParamSetting holds the two controls of one segment.
type ParamSetting struct {
	Primary   float32 `json:"primary"`
	Secondary float32 `json:"secondary"`
}

// Channel is a fully validated channel program.
type Channel struct {
	HasTrigger bool
	Multimode  segment.Multimode
	Configs    []segment.Configuration
	Params     []segment.Parameters
}

// LoadJSON loads and validates a channel preset.
func LoadJSON(path string) (*Channel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return Parse(&f)
}

// Parse validates a parsed preset file and converts it to a Channel.
func Parse(f *File) (*Channel, error) {
	if f == nil {
		return nil, fmt.Errorf("nil preset file")
	}
	n := len(f.Segments)
	if n < 1 || n > segment.MaxNumSegments {
		return nil, fmt.Errorf("segment count must be in 1..%d, got %d", segment.MaxNumSegments, n)
	}
	if len(f.Params) != n {
		return nil, fmt.Errorf("params length %d does not match segment count %d", len(f.Params), n)
	}

	c := &Channel{
		HasTrigger: f.HasTrigger,
		Configs:    make([]segment.Configuration, n),
		Params:     make([]segment.Parameters, n),
	}

	switch strings.ToLower(strings.TrimSpace(f.Multimode)) {
	case "", "normal":
		c.Multimode = segment.MultimodeNormal
	case "slow_lfo":
		c.Multimode = segment.MultimodeSlowLFO
	case "advanced":
		c.Multimode = segment.MultimodeAdvanced
	default:
		return nil, fmt.Errorf("unknown multimode %q (expected normal, slow_lfo or advanced)", f.Multimode)
	}

	for i, s := range f.Segments {
		cfg := &c.Configs[i]
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "ramp":
			cfg.Type = segment.TypeRamp
		case "step":
			cfg.Type = segment.TypeStep
		case "hold":
			cfg.Type = segment.TypeHold
		case "turing":
			cfg.Type = segment.TypeTuring
		default:
			return nil, fmt.Errorf("segments[%d]: unknown type %q", i, s.Type)
		}
		switch strings.ToLower(strings.TrimSpace(s.Range)) {
		case "", "default":
			cfg.Range = segment.RangeDefault
		case "slow":
			cfg.Range = segment.RangeSlow
		case "fast":
			cfg.Range = segment.RangeFast
		default:
			return nil, fmt.Errorf("segments[%d]: unknown range %q", i, s.Range)
		}
		cfg.Bipolar = s.Bipolar
		cfg.Loop = s.Loop
		c.Params[i] = segment.Parameters{
			Primary:   f.Params[i].Primary,
			Secondary: f.Params[i].Secondary,
		}
	}
	return c, nil
}

// Apply configures a generator with the channel program and pushes its
// parameters.
func (c *Channel) Apply(g *segment.Generator) {
	g.Configure(c.HasTrigger, c.Configs)
	for i, p := range c.Params {
		g.SetSegmentParameters(i, p.Primary, p.Secondary)
	}
}

// SaveJSON writes a preset back to disk.
func SaveJSON(path string, f *File) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
