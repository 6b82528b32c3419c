package inference

import (
	"fmt"
	"time"

	"github.com/samcharles93/cinder/internal/logits"
)

// Generator runs the sampling loop of a single turn. It holds no per-turn
// state: the sampler and penalty buffers are owned by the session.
type Generator struct {
	Model   Model
	Sampler *logits.Sampler
	Penalty *logits.RepeatPenalty
	Stop    StoppingPolicy
}

// Run feeds prompt at offset 0, samples the forced first token, then keeps
// feeding the previous token one at a time until the stopping policy fires.
// emit is called synchronously right after each token is sampled.
//
// On a forward failure the tokens generated so far are returned together
// with the error; they have already been emitted and are not retracted.
func (g *Generator) Run(prompt []int, emit func(GeneratedToken)) ([]int, StopReason, Stats, error) {
	var stats Stats
	if len(prompt) == 0 {
		return nil, "", stats, ErrEmptyContext
	}
	if emit == nil {
		emit = func(GeneratedToken) {}
	}

	promptStart := time.Now()
	logitsVec, err := safeForward(g.Model, prompt, 0)
	if err != nil {
		return nil, "", stats, err
	}
	next, err := safeSample(g.Sampler, logitsVec)
	if err != nil {
		return nil, "", stats, err
	}
	stats.PromptTokens = len(prompt)
	stats.PromptDuration = time.Since(promptStart)

	generated := make([]int, 0, min(g.Stop.SampleLength, 4096))
	generated = append(generated, next)
	reason, stop := g.Stop.Check(next, len(generated))
	emit(GeneratedToken{ID: next, IsStop: stop})

	genStart := time.Now()
	for !stop {
		offset := len(prompt) + len(generated) - 1
		logitsVec, err = safeForward(g.Model, []int{next}, offset)
		if err != nil {
			stats.GenerationDuration = time.Since(genStart)
			return generated, "", stats, fmt.Errorf("step %d: %w", len(generated), err)
		}
		logitsVec = g.Penalty.Apply(logitsVec, generated)
		next, err = safeSample(g.Sampler, logitsVec)
		if err != nil {
			stats.GenerationDuration = time.Since(genStart)
			return generated, "", stats, err
		}
		generated = append(generated, next)
		stats.GeneratedTokens++
		reason, stop = g.Stop.Check(next, len(generated))
		emit(GeneratedToken{ID: next, IsStop: stop})
	}
	stats.GenerationDuration = time.Since(genStart)
	return generated, reason, stats, nil
}

func safeForward(m Model, tokens []int, offset int) (out []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Forward: %v", ErrForward, rec)
		}
	}()
	out, err = m.Forward(tokens, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: offset %d: %w", ErrForward, offset, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: offset %d: model returned no logits", ErrForward, offset)
	}
	return out, nil
}

func safeSample(s *logits.Sampler, v []float32) (id int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Sample: %v", ErrForward, rec)
		}
	}()
	return s.Sample(v), nil
}

func safeEncode(tok Tokenizer, text string) (ids []int, surfaces []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Encode: %v", ErrEncoding, rec)
		}
	}()
	ids, surfaces, err = tok.Encode(text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return ids, surfaces, nil
}
