package main

import (
	"fmt"
	"time"

	"github.com/samcharles93/cinder/internal/gguf"
	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/logger"
	"github.com/samcharles93/cinder/internal/tokenizer"
	"github.com/samcharles93/cinder/internal/toy"
	"github.com/samcharles93/cinder/internal/variant"
)

// stack is everything a command needs to open sessions.
type stack struct {
	variant  variant.Variant
	tok      *tokenizer.HF
	modelCfg toy.Config
	genCfg   inference.GenerationConfig
}

func (s stack) newModel() (inference.Model, error) {
	m, err := toy.New(s.modelCfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// loadStack resolves the variant, tokenizer, model and generation settings
// from the flag variables. Config file defaults must already be applied.
func loadStack(log logger.Logger, set explicit) (stack, error) {
	v, err := variant.Lookup(which)
	if err != nil {
		return stack{}, err
	}

	var file *gguf.File
	if modelPath != "" {
		file, err = gguf.Open(modelPath)
		if err != nil {
			return stack{}, fmt.Errorf("open model: %w", err)
		}
		log.Debug("read model header", "path", modelPath, "arch", file.Architecture(), "tensors", len(file.Tensors))
	}

	tok, err := loadTokenizer(log, file)
	if err != nil {
		return stack{}, err
	}

	maxSeqLen := int(maxContext)
	if file != nil && !set.maxContext {
		if n, ok := file.ContextLength(); ok {
			maxSeqLen = n
		}
	}
	modelCfg, err := modelConfig(tok.VocabSize(), maxSeqLen)
	if err != nil {
		return stack{}, err
	}

	genCfg := generationConfig(v, maxSeqLen, set)
	if err := genCfg.Validate(); err != nil {
		return stack{}, err
	}

	log.Debug("model stack ready",
		"variant", v.Tag,
		"repo", v.Repo,
		"instruct", genCfg.InstructionTuned,
		"vocab", tok.VocabSize(),
		"max_context", maxSeqLen,
		"seed", genCfg.Seed,
	)
	return stack{variant: v, tok: tok, modelCfg: modelCfg, genCfg: genCfg}, nil
}

// loadTokenizer prefers an explicit tokenizer.json, then the vocabulary of
// the model file, then the built-in character tokenizer.
func loadTokenizer(log logger.Logger, file *gguf.File) (*tokenizer.HF, error) {
	switch {
	case tokenizerJSONPath != "":
		tok, err := tokenizer.LoadHF(tokenizerJSONPath, tokenizerConfig)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
		log.Debug("loaded tokenizer", "path", tokenizerJSONPath, "vocab", tok.VocabSize())
		return tok, nil
	case file != nil:
		v, err := file.Vocab()
		if err != nil {
			return nil, fmt.Errorf("model vocabulary: %w", err)
		}
		tok, err := tokenizer.FromGGUF(v)
		if err != nil {
			return nil, fmt.Errorf("model vocabulary: %w", err)
		}
		log.Debug("loaded model vocabulary", "model", v.Model, "vocab", tok.VocabSize())
		return tok, nil
	default:
		log.Debug("using built-in character tokenizer")
		return tokenizer.NewChar(), nil
	}
}

func modelConfig(vocab, maxSeqLen int) (toy.Config, error) {
	if maxSeqLen <= 0 {
		return toy.Config{}, fmt.Errorf("max context must be positive, got %d", maxSeqLen)
	}
	if hidden <= 0 {
		return toy.Config{}, fmt.Errorf("hidden size must be positive, got %d", hidden)
	}
	cfg := toy.DefaultConfig(vocab)
	cfg.MaxSeqLen = maxSeqLen
	cfg.Hidden = int(hidden)
	cfg.Seed = uint64(modelSeed)
	return cfg, nil
}

func generationConfig(v variant.Variant, maxSeqLen int, set explicit) inference.GenerationConfig {
	cfg := inference.DefaultGenerationConfig(maxSeqLen)
	cfg.SampleLength = int(sampleLen)
	cfg.Temperature = temperature
	if set.topP {
		p := topP
		cfg.TopP = &p
	}
	cfg.Seed = resolveSeed(seed)
	cfg.RepeatPenalty = float32(repeatPenalty)
	cfg.RepeatWindowSize = int(repeatLastN)
	cfg.VerbosePrompt = verbosePrompt
	cfg.InstructionTuned = v.Instruct
	if set.instruct {
		cfg.InstructionTuned = instruct
	}
	return cfg
}

// resolveSeed maps a negative seed to a time-based one.
func resolveSeed(s int64) uint64 {
	if s < 0 {
		return uint64(time.Now().UnixNano())
	}
	return uint64(s)
}
