package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the cinder configuration file (~/.config/cinder/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// Model
	Which           string `yaml:"which"`
	Model           string `yaml:"model"`
	MaxContext      *int64 `yaml:"max_context"`
	Hidden          *int64 `yaml:"hidden"`
	ModelSeed       *int64 `yaml:"model_seed"`
	TokenizerJSON   string `yaml:"tokenizer_json"`
	TokenizerConfig string `yaml:"tokenizer_config"`

	// Sampling defaults
	SampleLen     *int64   `yaml:"sample_len"`
	Temperature   *float64 `yaml:"temperature"`
	TopP          *float64 `yaml:"top_p"`
	Seed          *int64   `yaml:"seed"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	RepeatLastN   *int64   `yaml:"repeat_last_n"`
	Instruct      *bool    `yaml:"instruct"`
	VerbosePrompt *bool    `yaml:"verbose_prompt"`
	EchoPrompt    *bool    `yaml:"echo_prompt"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is the configuration loaded by the root command.
var fileConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cinder", "config.yaml")
}

// loadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.LogFile != "" && !c.IsSet("log-file") {
		logFile = cfg.LogFile
	}
}

// applyModelConfig applies config file defaults to the model flags and
// reports whether the max context was given by either source.
func applyModelConfig(c *cli.Command, cfg Config) (maxContextSet bool) {
	if cfg.Which != "" && !c.IsSet("which") {
		which = cfg.Which
	}
	if cfg.Model != "" && !c.IsSet("model") {
		modelPath = cfg.Model
	}
	maxContextSet = c.IsSet("max-context")
	if cfg.MaxContext != nil && !maxContextSet {
		maxContext = *cfg.MaxContext
		maxContextSet = true
	}
	if cfg.Hidden != nil && !c.IsSet("hidden") {
		hidden = *cfg.Hidden
	}
	if cfg.ModelSeed != nil && !c.IsSet("model-seed") {
		modelSeed = *cfg.ModelSeed
	}
	if cfg.TokenizerJSON != "" && !c.IsSet("tokenizer-json") {
		tokenizerJSONPath = cfg.TokenizerJSON
	}
	if cfg.TokenizerConfig != "" && !c.IsSet("tokenizer-config") {
		tokenizerConfig = cfg.TokenizerConfig
	}
	return maxContextSet
}

// applyGenerationConfig applies config file defaults to the sampling flags.
// The returned flags report whether top-p and the instruct override carry a
// value from either source.
func applyGenerationConfig(c *cli.Command, cfg Config) (topPSet, instructSet bool) {
	if cfg.SampleLen != nil && !c.IsSet("sample-len") {
		sampleLen = *cfg.SampleLen
	}
	if cfg.Temperature != nil && !c.IsSet("temperature") {
		temperature = *cfg.Temperature
	}
	topPSet = c.IsSet("top-p")
	if cfg.TopP != nil && !topPSet {
		topP = *cfg.TopP
		topPSet = true
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") {
		repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.RepeatLastN != nil && !c.IsSet("repeat-last-n") {
		repeatLastN = *cfg.RepeatLastN
	}
	instructSet = c.IsSet("instruct")
	if cfg.Instruct != nil && !instructSet {
		instruct = *cfg.Instruct
		instructSet = true
	}
	if cfg.VerbosePrompt != nil && !c.IsSet("verbose-prompt") {
		verbosePrompt = *cfg.VerbosePrompt
	}
	if cfg.EchoPrompt != nil && !c.IsSet("echo-prompt") {
		echoPrompt = *cfg.EchoPrompt
	}
	return topPSet, instructSet
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// explicit records which optional settings were given by a flag or the
// config file.
type explicit struct {
	maxContext bool
	topP       bool
	instruct   bool
}

// applyConfig applies config file defaults to the model and generation
// flags.
func applyConfig(c *cli.Command, cfg Config) explicit {
	var e explicit
	e.maxContext = applyModelConfig(c, cfg)
	e.topP, e.instruct = applyGenerationConfig(c, cfg)
	return e
}
