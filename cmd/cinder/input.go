package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/samcharles93/cinder/internal/inference"
)

var _ inference.InputSource = (*terminalInput)(nil)

// terminalInput reads one turn per line. On a terminal it uses the raw-mode
// line editor with history; otherwise it reads buffered lines. Blank lines
// are skipped and /exit or /quit end the session.
type terminalInput struct {
	in     io.Reader
	out    io.Writer
	prompt string
	buf    *bufio.Reader

	fd  int
	raw bool

	history []string

	mu      sync.Mutex
	restore func()
}

func newTerminalInput(in io.Reader, out io.Writer, prompt string) *terminalInput {
	t := &terminalInput{
		in:     in,
		out:    out,
		prompt: prompt,
		buf:    bufio.NewReader(in),
	}
	t.fd, t.raw = rawFD(in)
	return t
}

type lineResult struct {
	line string
	err  error
}

func (t *terminalInput) ReadLine(ctx context.Context) (string, error) {
	for {
		line, err := t.next(ctx)
		if err != nil {
			return "", err
		}
		line = trimTrailingNewline(line)
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/exit", "/quit":
			return "", io.EOF
		}
		t.remember(line)
		return line, nil
	}
}

// next blocks for one line or until ctx is done. A read abandoned by
// cancellation is left to finish in the background.
func (t *terminalInput) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	done := make(chan lineResult, 1)
	go func() {
		var r lineResult
		if t.raw {
			r.line, r.err = t.readRaw()
		} else {
			r.line, r.err = t.readBuffered()
		}
		done <- r
	}()
	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		t.Close()
		return "", ctx.Err()
	}
}

func (t *terminalInput) readBuffered() (string, error) {
	s, err := t.buf.ReadString('\n')
	if err == io.EOF && s != "" {
		return s, nil
	}
	return s, err
}

func (t *terminalInput) remember(line string) {
	if n := len(t.history); n > 0 && t.history[n-1] == line {
		return
	}
	t.history = append(t.history, line)
}

func (t *terminalInput) setRestore(fn func()) {
	t.mu.Lock()
	t.restore = fn
	t.mu.Unlock()
}

// Close restores the terminal if a raw read is in progress.
func (t *terminalInput) Close() {
	t.mu.Lock()
	fn := t.restore
	t.restore = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
