package main

import (
	"fmt"
	"io"
	"strings"
)

// lineEditor is the key handling of the raw-mode prompt. It consumes one
// byte at a time and redraws the current line on out.
type lineEditor struct {
	out     io.Writer
	prompt  string
	history []string

	line   []byte
	cursor int

	esc    int
	escBuf strings.Builder

	histPos  int
	browsing bool
	draft    string
}

func newLineEditor(out io.Writer, prompt string, history []string) *lineEditor {
	e := &lineEditor{
		out:     out,
		prompt:  prompt,
		history: history,
		line:    make([]byte, 0, 256),
		histPos: len(history),
	}
	_, _ = fmt.Fprint(out, prompt)
	return e
}

// feed handles one input byte. done is set once the line is complete; err
// is io.EOF when the user asked to leave.
func (e *lineEditor) feed(b byte) (line string, done bool, err error) {
	if e.esc != 0 {
		e.feedEscape(b)
		return "", false, nil
	}

	switch b {
	case 27: // ESC
		e.esc = 1
	case '\r', '\n':
		_, _ = fmt.Fprint(e.out, "\r\n")
		return string(e.line), true, nil
	case 3: // Ctrl+C
		_, _ = fmt.Fprint(e.out, "^C\r\n")
		return "", true, io.EOF
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			_, _ = fmt.Fprint(e.out, "\r\n")
			return "", true, io.EOF
		}
	case 127, 8: // backspace
		if e.cursor > 0 {
			e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
			e.cursor--
			e.redraw()
		}
	case 1: // Ctrl+A
		e.cursor = 0
		e.redraw()
	case 5: // Ctrl+E
		e.cursor = len(e.line)
		e.redraw()
	case 23: // Ctrl+W
		e.deleteWordBack()
	default:
		if b >= 32 {
			e.insert(b)
		}
	}
	return "", false, nil
}

func (e *lineEditor) feedEscape(b byte) {
	if e.esc == 1 {
		e.esc = 0
		switch b {
		case '[':
			e.esc = 2
			e.escBuf.Reset()
		case 'b', 'B': // Alt+b
			e.wordLeft()
		case 'f', 'F': // Alt+f
			e.wordRight()
		case 127: // Alt+Backspace
			e.deleteWordBack()
		}
		return
	}
	e.escBuf.WriteByte(b)
	if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
		e.csi(e.escBuf.String())
		e.esc = 0
	}
}

func (e *lineEditor) csi(seq string) {
	switch seq {
	case "A":
		e.historyUp()
	case "B":
		e.historyDown()
	case "D":
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "C":
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "H":
		e.cursor = 0
		e.redraw()
	case "F":
		e.cursor = len(e.line)
		e.redraw()
	case "3~":
		if e.cursor < len(e.line) {
			e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
			e.redraw()
		}
	case "1;5D", "5D":
		e.wordLeft()
	case "1;5C", "5C":
		e.wordRight()
	case "3;5~":
		e.deleteWordForward()
	}
}

func (e *lineEditor) insert(b byte) {
	if e.cursor == len(e.line) {
		e.line = append(e.line, b)
	} else {
		e.line = append(e.line, 0)
		copy(e.line[e.cursor+1:], e.line[e.cursor:])
		e.line[e.cursor] = b
	}
	e.cursor++
	e.redraw()
}

func (e *lineEditor) redraw() {
	_, _ = fmt.Fprintf(e.out, "\r%s%s\x1b[K", e.prompt, e.line)
	if e.cursor < len(e.line) {
		_, _ = fmt.Fprintf(e.out, "\r%s%s", e.prompt, e.line[:e.cursor])
	}
}

func (e *lineEditor) historyUp() {
	if len(e.history) == 0 {
		return
	}
	if !e.browsing {
		e.draft = string(e.line)
		e.browsing = true
		e.histPos = len(e.history)
	}
	if e.histPos > 0 {
		e.histPos--
		e.setLine(e.history[e.histPos])
	}
}

func (e *lineEditor) historyDown() {
	if !e.browsing {
		return
	}
	if e.histPos < len(e.history)-1 {
		e.histPos++
		e.setLine(e.history[e.histPos])
		return
	}
	e.histPos = len(e.history)
	e.browsing = false
	e.setLine(e.draft)
}

func (e *lineEditor) setLine(s string) {
	e.line = append(e.line[:0], s...)
	e.cursor = len(e.line)
	e.redraw()
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

// wordStart is the start of the word left of the cursor.
func (e *lineEditor) wordStart() int {
	i := e.cursor
	for i > 0 && isBlank(e.line[i-1]) {
		i--
	}
	for i > 0 && !isBlank(e.line[i-1]) {
		i--
	}
	return i
}

// wordEnd is the end of the word right of the cursor.
func (e *lineEditor) wordEnd() int {
	i := e.cursor
	for i < len(e.line) && isBlank(e.line[i]) {
		i++
	}
	for i < len(e.line) && !isBlank(e.line[i]) {
		i++
	}
	return i
}

func (e *lineEditor) wordLeft() {
	if e.cursor == 0 {
		return
	}
	e.cursor = e.wordStart()
	e.redraw()
}

func (e *lineEditor) wordRight() {
	if e.cursor >= len(e.line) {
		return
	}
	e.cursor = e.wordEnd()
	e.redraw()
}

func (e *lineEditor) deleteWordBack() {
	if e.cursor == 0 {
		return
	}
	start := e.wordStart()
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func (e *lineEditor) deleteWordForward() {
	if e.cursor >= len(e.line) {
		return
	}
	end := e.wordEnd()
	e.line = append(e.line[:e.cursor], e.line[end:]...)
	e.redraw()
}
