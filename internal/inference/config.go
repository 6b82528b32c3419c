package inference

import (
	"fmt"
	"math"

	"github.com/samcharles93/cinder/internal/logits"
)

const (
	// SafetyMargin is the number of context slots kept free below the
	// model's sequence ceiling.
	SafetyMargin = 10

	DefaultSampleLength     = 1500
	DefaultTemperature      = 1.0
	DefaultSeed             = uint64(299792458)
	DefaultRepeatPenalty    = 1.1
	DefaultRepeatWindowSize = 64
	DefaultMaxContextTokens = 4096

	// InstructTemplate frames a raw turn for instruction-tuned variants.
	InstructTemplate = "[INST] %s [/INST]"
)

// GenerationConfig is the immutable per-session configuration.
type GenerationConfig struct {
	SampleLength int
	Temperature  float64
	// TopP is nil when nucleus sampling is off.
	TopP             *float64
	Seed             uint64
	RepeatPenalty    float32
	RepeatWindowSize int
	MaxContextTokens int
	VerbosePrompt    bool
	// InstructionTuned wraps Interactive and Chat turns in InstructTemplate.
	InstructionTuned bool
}

// DefaultGenerationConfig returns the documented defaults for a model whose
// sequence ceiling is maxContext.
func DefaultGenerationConfig(maxContext int) GenerationConfig {
	return GenerationConfig{
		SampleLength:     DefaultSampleLength,
		Temperature:      DefaultTemperature,
		Seed:             DefaultSeed,
		RepeatPenalty:    DefaultRepeatPenalty,
		RepeatWindowSize: DefaultRepeatWindowSize,
		MaxContextTokens: maxContext,
	}
}

// Validate rejects configurations that could never produce a turn.
func (c GenerationConfig) Validate() error {
	if c.SampleLength <= 0 {
		return invalidConfig("sample length must be positive, got %d", c.SampleLength)
	}
	if math.IsNaN(c.Temperature) || math.IsInf(c.Temperature, 0) || c.Temperature < 0 {
		return invalidConfig("temperature must be a finite value >= 0, got %v", c.Temperature)
	}
	if c.TopP != nil {
		p := *c.TopP
		if math.IsNaN(p) || p <= 0 || p > 1 {
			return invalidConfig("top-p must be in (0,1], got %v", p)
		}
	}
	if c.RepeatPenalty != c.RepeatPenalty || c.RepeatPenalty < 1 {
		return invalidConfig("repeat penalty must be >= 1.0, got %v", c.RepeatPenalty)
	}
	if c.RepeatWindowSize < 0 {
		return invalidConfig("repeat window must be >= 0, got %d", c.RepeatWindowSize)
	}
	if c.MaxContextTokens <= SafetyMargin {
		return invalidConfig("max context %d leaves no room above the safety margin of %d", c.MaxContextTokens, SafetyMargin)
	}
	if budget := c.MaxContextTokens - SafetyMargin; c.SampleLength-1 >= budget {
		return invalidConfig("sample length %d does not fit a context budget of %d tokens", c.SampleLength, budget)
	}
	return nil
}

// ToGenerate is the number of tokens sampled after the forced first token.
func (c GenerationConfig) ToGenerate() int {
	return max(c.SampleLength-1, 0)
}

// SamplerConfig maps the generation settings onto the logits sampler.
func (c GenerationConfig) SamplerConfig() logits.SamplerConfig {
	cfg := logits.SamplerConfig{
		Seed:        c.Seed,
		Temperature: c.Temperature,
	}
	if c.TopP != nil {
		cfg.TopP = *c.TopP
	}
	return cfg
}

// FramePrompt applies the instruction template when the config asks for it.
func (c GenerationConfig) FramePrompt(raw string) string {
	if !c.InstructionTuned {
		return raw
	}
	return fmt.Sprintf(InstructTemplate, raw)
}
