package inference

// ContextBuilder assembles the sequence fed to the model at the start of a
// turn and keeps it inside the model's sequence ceiling.
type ContextBuilder struct {
	MaxContextTokens int
	SafetyMargin     int
}

// Budget is the largest context plus generation length allowed per turn.
func (b ContextBuilder) Budget() int {
	return max(b.MaxContextTokens-b.SafetyMargin, 0)
}

// Build returns history ++ newTokens, dropping tokens from the front until
// the result plus toGenerate fits Budget. The result never aliases its
// inputs. When toGenerate alone exhausts the budget the result is empty.
func (b ContextBuilder) Build(history, newTokens []int, toGenerate int) []int {
	total := len(history) + len(newTokens)
	drop := b.Excess(total, toGenerate)

	out := make([]int, 0, total-drop)
	if drop < len(history) {
		out = append(out, history[drop:]...)
		out = append(out, newTokens...)
	} else {
		out = append(out, newTokens[drop-len(history):]...)
	}
	return out
}

// Excess is the number of leading tokens Build drops from a sequence of
// length n, clamped to [0, n].
func (b ContextBuilder) Excess(n, toGenerate int) int {
	over := n + max(toGenerate, 0) - b.Budget()
	return min(max(over, 0), n)
}
