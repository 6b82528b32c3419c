package logits

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

// pcgStream is mixed into the seed to derive the second PCG word.
const pcgStream = 0x9e3779b97f4a7c15

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed        uint64
	Temperature float64
	// TopP is the nucleus cutoff. Values outside (0,1) sample the full
	// distribution.
	TopP float64
}

// Sampler turns a logits vector into a token id. It owns its random source
// for its whole lifetime and is never reseeded.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	prob   []float64
	order  []int
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	return &Sampler{
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^pcgStream)),
		cfg:    cfg,
		greedy: cfg.Temperature <= 0,
	}
}

// Greedy reports whether the sampler always picks the arg-max.
func (s *Sampler) Greedy() bool {
	return s.greedy
}

// Sample draws a single index from the provided logits vector.
//
//  1. With a zero temperature the arg-max is returned, ties going to the
//     lowest index. The random source is not consumed.
//  2. Otherwise the logits are divided by the temperature and turned into a
//     softmax distribution (max-subtracted for numerical stability).
//  3. If TopP is in (0,1) the candidates are ordered by descending
//     probability and cut at the smallest prefix whose cumulative
//     probability reaches TopP.
//  4. One uniform draw selects an index from the retained mass.
//
// Sample panics on an empty slice.
func (s *Sampler) Sample(logits []float32) int {
	if len(logits) == 0 {
		panic("logits: sample from empty slice")
	}
	if s.greedy {
		return Argmax(logits)
	}

	invTemp := 1.0 / s.cfg.Temperature
	maxv := math.Inf(-1)
	for _, l := range logits {
		v := float64(l) * invTemp
		if !math.IsNaN(v) && v > maxv {
			maxv = v
		}
	}
	if math.IsInf(maxv, 0) {
		return Argmax(logits)
	}

	if cap(s.prob) < len(logits) {
		s.prob = make([]float64, len(logits))
	}
	prob := s.prob[:len(logits)]
	var sum float64
	for i, l := range logits {
		v := float64(l) * invTemp
		if math.IsNaN(v) {
			prob[i] = 0
			continue
		}
		prob[i] = math.Exp(v - maxv)
		sum += prob[i]
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Argmax(logits)
	}

	if s.cfg.TopP > 0 && s.cfg.TopP < 1 {
		return s.sampleNucleus(prob, sum)
	}

	r := s.rng.Float64() * sum
	last := 0
	var c float64
	for i, p := range prob {
		if p == 0 {
			continue
		}
		c += p
		last = i
		if r < c {
			return i
		}
	}
	return last
}

func (s *Sampler) sampleNucleus(prob []float64, sum float64) int {
	if cap(s.order) < len(prob) {
		s.order = make([]int, len(prob))
	}
	order := s.order[:len(prob)]
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(prob[b], prob[a])
	})

	cut := len(order)
	var kept float64
	for i, idx := range order {
		kept += prob[idx]
		if kept/sum >= s.cfg.TopP {
			cut = i + 1
			break
		}
	}
	order = order[:cut]

	r := s.rng.Float64() * kept
	var c float64
	for _, idx := range order {
		c += prob[idx]
		if r < c {
			return idx
		}
	}
	return order[len(order)-1]
}

// Argmax returns the index of the maximum value in the slice. Ties resolve
// to the lowest index and NaN entries are never selected unless every entry
// is NaN, in which case 0 is returned. It panics on an empty slice.
func Argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := -1
	var bestV float32
	for i, v := range x {
		if v != v {
			continue
		}
		if bestI < 0 || v > bestV {
			bestV = v
			bestI = i
		}
	}
	if bestI < 0 {
		return 0
	}
	return bestI
}
