package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/logger"
)

// Tokenizer is the inference tokenizer plus the decoding used for response
// text.
type Tokenizer interface {
	inference.Tokenizer
	Decode(ids []int) (string, error)
}

// ModelFactory builds a fresh model for a new session. Sessions never share
// a model.
type ModelFactory func() (inference.Model, error)

// Backend holds what every session is built from.
type Backend struct {
	NewModel  ModelFactory
	Tokenizer Tokenizer
	Defaults  inference.GenerationConfig
	Logger    logger.Logger
}

func (b Backend) validate() error {
	if b.NewModel == nil {
		return errors.New("api: backend has no model factory")
	}
	if b.Tokenizer == nil {
		return errors.New("api: backend has no tokenizer")
	}
	return b.Defaults.Validate()
}

func (b Backend) newSession(req CreateSessionRequest) (*sessionEntry, error) {
	mode := inference.ModeChat
	if strings.TrimSpace(req.Mode) != "" {
		m, err := inference.ParseMode(req.Mode)
		if err != nil {
			return nil, badParam("mode", "%v", err)
		}
		mode = m
	}
	if mode == inference.ModeOneShot && req.Prompt == "" {
		return nil, badParam("prompt", "prompt is required for oneshot sessions")
	}

	cfg := req.GenerationOptions.Apply(b.Defaults)
	cfg.VerbosePrompt = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := b.NewModel()
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	entry := &sessionEntry{
		input: &queuedInput{},
		sink:  &inference.RecordingSink{},
	}
	opts := inference.SessionOptions{
		Mode:   mode,
		Prompt: req.Prompt,
		Sink:   entry.sink,
		Logger: b.Logger,
	}
	if mode != inference.ModeOneShot {
		opts.Input = entry.input
	}
	entry.session, err = inference.NewSession(cfg, model, b.Tokenizer, opts)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
