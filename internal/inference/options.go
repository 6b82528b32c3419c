package inference

// GenerationOptions carries optional overrides, typically decoded from a
// config file or an API request. Nil fields keep the base value.
type GenerationOptions struct {
	SampleLength     *int     `json:"sample_len,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	Seed             *uint64  `json:"seed,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	RepeatWindowSize *int     `json:"repeat_last_n,omitempty"`
	VerbosePrompt    *bool    `json:"verbose_prompt,omitempty"`
	InstructionTuned *bool    `json:"instruct,omitempty"`
}

// Apply returns base with every set option overriding it.
func (o GenerationOptions) Apply(base GenerationConfig) GenerationConfig {
	cfg := base
	if o.SampleLength != nil {
		cfg.SampleLength = *o.SampleLength
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		p := *o.TopP
		cfg.TopP = &p
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.RepeatPenalty != nil {
		cfg.RepeatPenalty = float32(*o.RepeatPenalty)
	}
	if o.RepeatWindowSize != nil {
		cfg.RepeatWindowSize = *o.RepeatWindowSize
	}
	if o.VerbosePrompt != nil {
		cfg.VerbosePrompt = *o.VerbosePrompt
	}
	if o.InstructionTuned != nil {
		cfg.InstructionTuned = *o.InstructionTuned
	}
	return cfg
}
