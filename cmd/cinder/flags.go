package main

import (
	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/variant"
	"github.com/urfave/cli/v3"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	logFile    string
	debug      bool

	which             string
	modelPath         string
	maxContext        int64
	hidden            int64
	modelSeed         int64
	tokenizerJSONPath string
	tokenizerConfig   string

	sampleLen     int64
	temperature   float64
	topP          float64
	seed          int64
	repeatPenalty float64
	repeatLastN   int64
	instruct      bool
	verbosePrompt bool
	echoPrompt    bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/cinder/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "also write JSON logs to this file (rotated)",
			Destination: &logFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "which",
			Aliases:     []string{"w"},
			Usage:       "model variant (list them with: cinder variants)",
			Value:       variant.DefaultTag,
			Destination: &which,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "GGUF file supplying the vocabulary and context length (weights are not loaded)",
			Destination: &modelPath,
		},
		&cli.Int64Flag{
			Name:        "max-context",
			Aliases:     []string{"max-ctx", "ctx", "c"},
			Usage:       "max context length (default: from --model, else 4096)",
			Value:       inference.DefaultMaxContextTokens,
			Destination: &maxContext,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "hidden size of the built-in model",
			Value:       64,
			Destination: &hidden,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Usage:       "weight seed of the built-in model",
			Value:       1,
			Destination: &modelSeed,
		},
		&cli.StringFlag{
			Name:        "tokenizer-json",
			Usage:       "path to tokenizer.json (default: --model vocabulary, else built-in)",
			Destination: &tokenizerJSONPath,
		},
		&cli.StringFlag{
			Name:        "tokenizer-config",
			Usage:       "path to tokenizer_config.json",
			Destination: &tokenizerConfig,
		},
	}
}

func generationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "sample-len",
			Aliases:     []string{"n"},
			Usage:       "maximum number of tokens per turn, first token included",
			Value:       inference.DefaultSampleLength,
			Destination: &sampleLen,
		},
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       inference.DefaultTemperature,
			Destination: &temperature,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "nucleus sampling cutoff in (0,1] (unset = full distribution)",
			Destination: &topP,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (-1 = time based)",
			Value:       int64(inference.DefaultSeed),
			Destination: &seed,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "penalty applied to recently generated tokens (1.0 = off)",
			Value:       inference.DefaultRepeatPenalty,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Usage:       "number of generated tokens the repeat penalty looks back on",
			Value:       inference.DefaultRepeatWindowSize,
			Destination: &repeatLastN,
		},
		&cli.BoolFlag{
			Name:        "instruct",
			Usage:       "force [INST] framing on or off (default: from the variant)",
			Destination: &instruct,
		},
		&cli.BoolFlag{
			Name:        "verbose-prompt",
			Usage:       "print every prompt token before generating",
			Destination: &verbosePrompt,
		},
		&cli.BoolFlag{
			Name:        "echo-prompt",
			Usage:       "print the framed prompt before its continuation",
			Destination: &echoPrompt,
		},
	}
}
