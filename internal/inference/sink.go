package inference

import (
	"fmt"
	"io"
	"strings"
)

type flusher interface {
	Flush() error
}

// WriterSink streams generated text to Out. Verbose prompt listings and the
// echoed prompt go to Diag when set, otherwise to Out.
type WriterSink struct {
	Out        io.Writer
	Diag       io.Writer
	EchoPrompt bool
}

func (w *WriterSink) Prompt(text string) {
	if !w.EchoPrompt {
		return
	}
	_, _ = io.WriteString(w.Out, text)
	w.flush()
}

func (w *WriterSink) PromptToken(id int, surface string) {
	diag := w.Diag
	if diag == nil {
		diag = w.Out
	}
	_, _ = fmt.Fprintln(diag, FormatPromptToken(id, surface))
}

func (w *WriterSink) Token(_ GeneratedToken, text string) {
	if text == "" {
		return
	}
	_, _ = io.WriteString(w.Out, text)
	w.flush()
}

func (w *WriterSink) flush() {
	if f, ok := w.Out.(flusher); ok {
		_ = f.Flush()
	}
}

// RecordingSink keeps everything a turn emits. The zero value is ready to
// use.
type RecordingSink struct {
	PromptText   string
	PromptTokens []int
	Tokens       []GeneratedToken
	text         strings.Builder
}

func (r *RecordingSink) Prompt(text string) { r.PromptText = text }

func (r *RecordingSink) PromptToken(id int, _ string) {
	r.PromptTokens = append(r.PromptTokens, id)
}

func (r *RecordingSink) Token(tok GeneratedToken, text string) {
	r.Tokens = append(r.Tokens, tok)
	r.text.WriteString(text)
}

// Text is the concatenated display text of every token.
func (r *RecordingSink) Text() string { return r.text.String() }

// Reset forgets everything recorded so far.
func (r *RecordingSink) Reset() {
	r.PromptText = ""
	r.PromptTokens = nil
	r.Tokens = nil
	r.text.Reset()
}

type discardSink struct{}

func (discardSink) Prompt(string) {}
func (discardSink) PromptToken(int, string) {}
func (discardSink) Token(GeneratedToken, string) {}
