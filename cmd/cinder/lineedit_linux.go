//go:build linux

package main

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func rawFD(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// readRaw reads one line with echo, canonical mode and signal keys turned
// off, so Ctrl+C reaches the editor as a byte.
func (t *terminalInput) readRaw() (string, error) {
	oldState, err := unix.IoctlGetTermios(t.fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, &newState); err != nil {
		return "", err
	}
	t.setRestore(func() {
		_ = unix.IoctlSetTermios(t.fd, unix.TCSETS, oldState)
	})
	defer t.Close()

	ed := newLineEditor(t.out, t.prompt, t.history)
	var buf [16]byte
	for {
		n, err := t.in.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if line, done, err := ed.feed(b); done {
				return line, err
			}
		}
	}
}
