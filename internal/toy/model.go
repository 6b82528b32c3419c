// Package toy provides a small deterministic language model. It produces
// real logits over a vocabulary from seeded random weights and keeps a
// per-position cache, so it behaves like an incremental decoder without
// needing any weight files.
package toy

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	// ErrOffset is returned when a call's offset does not match the number
	// of tokens already consumed.
	ErrOffset = errors.New("position offset mismatch")
	// ErrSequenceTooLong is returned when a call would grow the cache past
	// MaxSeqLen.
	ErrSequenceTooLong = errors.New("sequence exceeds model capacity")
	// ErrTokenRange is returned for ids outside the vocabulary.
	ErrTokenRange = errors.New("token id out of range")
)

// Config sizes the model.
type Config struct {
	Vocab     int
	Hidden    int
	MaxSeqLen int
	Seed      uint64
	// Decay weighs the previous hidden state against the new embedding.
	Decay float32
}

// DefaultConfig returns a config for a vocabulary of the given size.
func DefaultConfig(vocab int) Config {
	return Config{
		Vocab:     vocab,
		Hidden:    64,
		MaxSeqLen: 4096,
		Seed:      1,
		Decay:     0.85,
	}
}

// Model is a single-owner incremental decoder. It is not safe for
// concurrent use.
type Model struct {
	cfg Config

	emb  []float32 // [Vocab x Hidden]
	w    []float32 // [Hidden x Vocab]
	bias []float32 // [Vocab]

	// cache holds the hidden state after each consumed position.
	cache [][]float32
}

// New builds a model whose weights are a pure function of cfg.Seed.
func New(cfg Config) (*Model, error) {
	if cfg.Vocab <= 0 || cfg.Hidden <= 0 {
		return nil, fmt.Errorf("toy: invalid dimensions vocab=%d hidden=%d", cfg.Vocab, cfg.Hidden)
	}
	if cfg.MaxSeqLen <= 0 {
		return nil, fmt.Errorf("toy: max sequence length must be positive, got %d", cfg.MaxSeqLen)
	}
	if cfg.Decay < 0 || cfg.Decay >= 1 {
		return nil, fmt.Errorf("toy: decay must be in [0,1), got %v", cfg.Decay)
	}
	m := &Model{
		cfg:  cfg,
		emb:  make([]float32, cfg.Vocab*cfg.Hidden),
		w:    make([]float32, cfg.Hidden*cfg.Vocab),
		bias: make([]float32, cfg.Vocab),
	}
	fillRand(m.emb, cfg.Seed+11, 1)
	fillRand(m.w, cfg.Seed+23, 1/float32(cfg.Hidden))
	fillRand(m.bias, cfg.Seed+37, 0.5)
	return m, nil
}

func fillRand(dst []float32, seed uint64, scale float32) {
	r := rand.New(rand.NewPCG(seed, seed*0x9e3779b97f4a7c15))
	for i := range dst {
		dst[i] = (r.Float32()*2 - 1) * scale
	}
}

// Forward consumes tokens starting at offset and returns the logits for
// the next position. Offset 0 starts a new sequence and drops the cache;
// any other offset must equal the number of tokens consumed so far.
func (m *Model) Forward(tokens []int, offset int) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, errors.New("toy: no tokens to consume")
	}
	if offset == 0 {
		m.Reset()
	}
	if offset != len(m.cache) {
		return nil, fmt.Errorf("%w: got %d, consumed %d", ErrOffset, offset, len(m.cache))
	}
	if n := offset + len(tokens); n > m.cfg.MaxSeqLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrSequenceTooLong, n, m.cfg.MaxSeqLen)
	}
	for _, tok := range tokens {
		if tok < 0 || tok >= m.cfg.Vocab {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrTokenRange, tok, m.cfg.Vocab)
		}
	}

	for _, tok := range tokens {
		h := make([]float32, m.cfg.Hidden)
		if n := len(m.cache); n > 0 {
			prev := m.cache[n-1]
			for i := range h {
				h[i] = m.cfg.Decay * prev[i]
			}
		}
		row := m.emb[tok*m.cfg.Hidden : (tok+1)*m.cfg.Hidden]
		for i, v := range row {
			h[i] += v
		}
		m.cache = append(m.cache, h)
	}
	return m.project(m.cache[len(m.cache)-1]), nil
}

// project computes logits = h * W + bias.
func (m *Model) project(h []float32) []float32 {
	out := make([]float32, m.cfg.Vocab)
	copy(out, m.bias)
	for i, hv := range h {
		if hv == 0 {
			continue
		}
		row := m.w[i*m.cfg.Vocab : (i+1)*m.cfg.Vocab]
		for j, wv := range row {
			out[j] += hv * wv
		}
	}
	return out
}

// Reset drops the cache.
func (m *Model) Reset() {
	m.cache = m.cache[:0]
}

// Consumed is the number of positions currently cached.
func (m *Model) Consumed() int { return len(m.cache) }

func (m *Model) MaxSeqLen() int { return m.cfg.MaxSeqLen }
func (m *Model) VocabSize() int { return m.cfg.Vocab }
