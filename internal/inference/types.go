package inference

import (
	"context"
	"fmt"
	"strings"
)

// Model is the scoring oracle driven by the generation loop. It is stateful:
// the first call of a turn passes the whole context at offset 0, every later
// call passes exactly one token at the offset equal to the number of tokens
// already fed.
type Model interface {
	Forward(tokens []int, offset int) ([]float32, error)
}

// Tokenizer converts text to token ids and back to surface strings.
type Tokenizer interface {
	Encode(text string) (ids []int, surfaces []string, err error)
	IDToToken(id int) (string, bool)
	EOSTokenID() int
}

// InputSource blocks until the next turn's raw text is available. It is the
// only suspension point of a session.
type InputSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(ctx context.Context) (string, error)

func (f InputFunc) ReadLine(ctx context.Context) (string, error) { return f(ctx) }

// Sink receives the output of a turn as it is produced.
type Sink interface {
	// Prompt is called once per turn with the framed prompt text.
	Prompt(text string)
	// PromptToken is called for each encoded prompt token when verbose
	// prompts are enabled.
	PromptToken(id int, surface string)
	// Token is called right after each token is sampled. text is the display
	// form, empty when nothing should be printed.
	Token(tok GeneratedToken, text string)
}

// GeneratedToken is one sampled token. IsStop marks the token that ended the
// turn.
type GeneratedToken struct {
	ID     int
	IsStop bool
}

// Mode selects how a session acquires input and whether it keeps history.
type Mode int

const (
	ModeOneShot Mode = iota
	ModeInteractive
	ModeChat
)

func (m Mode) String() string {
	switch m {
	case ModeOneShot:
		return "oneshot"
	case ModeInteractive:
		return "interactive"
	case ModeChat:
		return "chat"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oneshot", "one-shot", "one":
		return ModeOneShot, nil
	case "interactive":
		return ModeInteractive, nil
	case "chat":
		return ModeChat, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// StopReason records why a turn ended.
type StopReason string

const (
	StopEOS    StopReason = "eos"
	StopLength StopReason = "length"
)

// TurnResult is the outcome of one turn.
type TurnResult struct {
	Turn int
	// Context is the (possibly truncated) sequence fed at offset 0.
	Context []int
	// Tokens holds every token generated in the turn, in order.
	Tokens []int
	// Truncated is the number of tokens dropped from the front of the
	// assembled context.
	Truncated  int
	StopReason StopReason
	Stats      Stats
}
