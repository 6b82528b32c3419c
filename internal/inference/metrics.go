package inference

import (
	"fmt"
	"time"
)

// Stats tracks throughput for the prompt and generation phases of a turn.
// The prompt phase covers the offset-0 forward call and the forced first
// token; the generation phase covers every later token.
type Stats struct {
	PromptTokens       int
	PromptDuration     time.Duration
	GeneratedTokens    int
	GenerationDuration time.Duration
}

// PromptTPS is prompt tokens processed per second.
func (s Stats) PromptTPS() float64 {
	return rate(s.PromptTokens, s.PromptDuration)
}

// GenerationTPS is tokens sampled per second after the prompt phase.
func (s Stats) GenerationTPS() float64 {
	return rate(s.GeneratedTokens, s.GenerationDuration)
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.PromptTokens += o.PromptTokens
	s.PromptDuration += o.PromptDuration
	s.GeneratedTokens += o.GeneratedTokens
	s.GenerationDuration += o.GenerationDuration
}

// Report renders the two-line throughput summary printed after a turn.
func (s Stats) Report() string {
	return fmt.Sprintf("%4d prompt tokens processed: %.2f token/s\n%4d tokens generated: %.2f token/s",
		s.PromptTokens, s.PromptTPS(), s.GeneratedTokens, s.GenerationTPS())
}

func rate(n int, d time.Duration) float64 {
	if n == 0 || d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
