package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/samcharles93/cinder/internal/logger"
	"github.com/samcharles93/cinder/internal/logits"
)

// SessionOptions wires a session to its host.
type SessionOptions struct {
	Mode Mode
	// Prompt is the single input of a OneShot session.
	Prompt string
	// Input supplies turns in Interactive and Chat modes.
	Input  InputSource
	Sink   Sink
	Logger logger.Logger
}

// Session owns the model, tokenizer and sampling state for one conversation
// and runs it turn by turn. It is not safe for concurrent use.
type Session struct {
	ID uuid.UUID

	mode    Mode
	cfg     GenerationConfig
	model   Model
	tok     Tokenizer
	input   InputSource
	sink    Sink
	log     logger.Logger
	prompt  string
	eos     int
	builder ContextBuilder
	gen     Generator

	history []int
	turns   int
	closed  bool
	totals  Stats
}

// NewSession validates cfg and binds the collaborators. The end-of-sequence
// id is looked up once here.
func NewSession(cfg GenerationConfig, model Model, tok Tokenizer, opts SessionOptions) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, invalidConfig("model is required")
	}
	if tok == nil {
		return nil, invalidConfig("tokenizer is required")
	}
	switch opts.Mode {
	case ModeOneShot:
	case ModeInteractive, ModeChat:
		if opts.Input == nil {
			return nil, invalidConfig("%s mode needs an input source", opts.Mode)
		}
	default:
		return nil, invalidConfig("unknown mode %d", int(opts.Mode))
	}
	eos := tok.EOSTokenID()
	if eos < 0 {
		return nil, invalidConfig("tokenizer has no end-of-sequence token")
	}

	sink := opts.Sink
	if sink == nil {
		sink = discardSink{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	id := uuid.New()
	s := &Session{
		ID:     id,
		mode:   opts.Mode,
		cfg:    cfg,
		model:  model,
		tok:    tok,
		input:  opts.Input,
		sink:   sink,
		log:    log.With("session", id.String(), "mode", opts.Mode.String()),
		prompt: opts.Prompt,
		eos:    eos,
		builder: ContextBuilder{
			MaxContextTokens: cfg.MaxContextTokens,
			SafetyMargin:     SafetyMargin,
		},
	}
	s.gen = Generator{
		Model:   model,
		Sampler: logits.NewSampler(cfg.SamplerConfig()),
		Penalty: logits.NewRepeatPenalty(cfg.RepeatPenalty, cfg.RepeatWindowSize),
		Stop: StoppingPolicy{
			SampleLength: cfg.SampleLength,
			EOSTokenID:   eos,
		},
	}
	return s, nil
}

func (s *Session) Mode() Mode { return s.mode }
func (s *Session) Config() GenerationConfig { return s.cfg }
func (s *Session) Turns() int { return s.turns }
func (s *Session) Closed() bool { return s.closed }
func (s *Session) Totals() Stats { return s.totals }
func (s *Session) EOSTokenID() int { return s.eos }
func (s *Session) Budget() int { return s.builder.Budget() }

// History returns a copy of the tokens carried into the next Chat turn.
func (s *Session) History() []int {
	return append([]int(nil), s.history...)
}

// Close ends the session; further turns fail with ErrSessionClosed.
func (s *Session) Close() {
	s.closed = true
}

// RunTurn runs one turn. OneShot sessions use their construction prompt and
// close afterwards. Interactive and Chat sessions block on the input source,
// the only point where ctx is observed; once generation starts the turn runs
// to completion.
//
// Tokens are streamed to the sink as they are sampled. On failure the
// tokens already emitted stay emitted and a partial result is returned with
// the error. Encoding, empty-context and forward failures leave the session
// usable; input failures close it.
func (s *Session) RunTurn(ctx context.Context) (*TurnResult, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	raw, err := s.acquire(ctx)
	if err != nil {
		s.closed = true
		return nil, err
	}

	text := raw
	if s.mode != ModeOneShot {
		text = s.cfg.FramePrompt(raw)
	}
	s.sink.Prompt(text)

	ids, surfaces, err := safeEncode(s.tok, text)
	if err != nil {
		s.log.Warn("turn discarded", "error", err)
		return nil, err
	}
	if s.cfg.VerbosePrompt {
		for i, id := range ids {
			surface := ""
			if i < len(surfaces) {
				surface = surfaces[i]
			}
			s.sink.PromptToken(id, surface)
		}
	}

	toGenerate := s.cfg.ToGenerate()
	history := s.history
	if s.mode != ModeChat {
		history = nil
	}
	truncated := s.builder.Excess(len(history)+len(ids), toGenerate)
	fed := s.builder.Build(history, ids, toGenerate)
	s.log.Debug("context assembled",
		"history", len(history),
		"input", len(ids),
		"fed", len(fed),
		"truncated", truncated,
		"budget", s.builder.Budget(),
	)

	generated, reason, stats, err := s.gen.Run(fed, s.emit)
	result := &TurnResult{
		Turn:       s.turns + 1,
		Context:    fed,
		Tokens:     generated,
		Truncated:  truncated,
		StopReason: reason,
		Stats:      stats,
	}
	if err != nil {
		if errors.Is(err, ErrEmptyContext) {
			err = fmt.Errorf("%w: %d input tokens do not fit a budget of %d with %d to generate",
				ErrEmptyContext, len(ids), s.builder.Budget(), toGenerate)
		}
		s.log.Error("turn aborted", "error", err, "emitted", len(generated))
		return result, err
	}

	s.turns++
	s.totals.Add(stats)
	if s.mode == ModeChat {
		next := make([]int, 0, len(fed)+len(generated))
		next = append(next, fed...)
		s.history = append(next, generated...)
	}
	s.log.Info("turn complete",
		"turn", s.turns,
		"prompt_tokens", stats.PromptTokens,
		"generated", len(generated),
		"stop", string(reason),
		"prompt_tps", stats.PromptTPS(),
		"gen_tps", stats.GenerationTPS(),
	)
	return result, nil
}

func (s *Session) acquire(ctx context.Context) (string, error) {
	if s.mode == ModeOneShot {
		s.closed = true
		return s.prompt, nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputAcquisition, err)
	}
	line, err := s.input.ReadLine(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputAcquisition, err)
	}
	return line, nil
}

func (s *Session) emit(tok GeneratedToken) {
	text := ""
	if tok.ID != s.eos {
		if surface, ok := s.tok.IDToToken(tok.ID); ok {
			text, _ = DisplayText(surface)
		}
	}
	s.sink.Token(tok, text)
}
