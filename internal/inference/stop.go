package inference

// StoppingPolicy decides when a turn ends.
type StoppingPolicy struct {
	SampleLength int
	EOSTokenID   int
}

// ShouldStop reports whether generation ends after token, emitted being the
// number of tokens produced so far in the turn, the forced first token
// included.
func (p StoppingPolicy) ShouldStop(token, emitted int) bool {
	_, stop := p.Check(token, emitted)
	return stop
}

// Check is ShouldStop with the reason attached.
func (p StoppingPolicy) Check(token, emitted int) (StopReason, bool) {
	if token == p.EOSTokenID {
		return StopEOS, true
	}
	if emitted >= p.SampleLength-1 {
		return StopLength, true
	}
	return "", false
}
