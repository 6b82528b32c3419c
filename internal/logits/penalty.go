package logits

// RepeatPenalty dampens the logits of tokens that appear in the trailing
// window of recent output. A Penalty of exactly 1 disables it.
type RepeatPenalty struct {
	Penalty float32
	Window  int

	buf       []float32
	seenMark  []uint32
	seenEpoch uint32
	seenList  []int
}

// NewRepeatPenalty returns a filter penalising the last window tokens.
func NewRepeatPenalty(penalty float32, window int) *RepeatPenalty {
	return &RepeatPenalty{Penalty: penalty, Window: window}
}

// Enabled reports whether Apply can change anything.
func (p *RepeatPenalty) Enabled() bool {
	return p != nil && p.Penalty != 1 && p.Window > 0
}

// Apply returns logits adjusted for the tokens in the last Window entries
// of recent. Each distinct id in the window is penalised once: positive
// logits are divided by Penalty, non-positive ones multiplied by it.
//
// When the filter is disabled the input slice itself is returned. Otherwise
// the result lives in a buffer owned by p that is reused by the next call;
// the input is never modified.
func (p *RepeatPenalty) Apply(logits []float32, recent []int) []float32 {
	if p == nil || p.Penalty == 1 {
		return logits
	}
	window := LastN(recent, p.Window)
	if len(window) == 0 {
		return logits
	}

	if cap(p.buf) < len(logits) {
		p.buf = make([]float32, len(logits))
	}
	out := p.buf[:len(logits)]
	copy(out, logits)

	if len(p.seenMark) < len(logits) {
		p.seenMark = make([]uint32, len(logits))
	}
	p.seenEpoch++
	if p.seenEpoch == 0 {
		clear(p.seenMark)
		p.seenEpoch = 1
	}
	p.seenList = p.seenList[:0]
	for _, id := range window {
		if id >= 0 && id < len(out) && p.seenMark[id] != p.seenEpoch {
			p.seenMark[id] = p.seenEpoch
			p.seenList = append(p.seenList, id)
		}
	}

	for _, id := range p.seenList {
		if out[id] > 0 {
			out[id] /= p.Penalty
		} else {
			out[id] *= p.Penalty
		}
	}
	return out
}

// LastN returns the trailing n elements of ids (all of them when n exceeds
// the length, none when n <= 0). The result aliases ids.
func LastN(ids []int, n int) []int {
	if n <= 0 {
		return ids[:0]
	}
	start := max(len(ids)-n, 0)
	return ids[start:]
}
