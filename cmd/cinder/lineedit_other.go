//go:build !linux

package main

import "io"

func rawFD(io.Reader) (int, bool) { return 0, false }

func (t *terminalInput) readRaw() (string, error) {
	return t.readBuffered()
}
