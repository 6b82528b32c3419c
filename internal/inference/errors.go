package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding means the tokenizer rejected the turn's input. Only the
	// current turn is lost; the session stays usable.
	ErrEncoding = errors.New("encoding failure")
	// ErrForward means a model scoring call failed. The turn is aborted and
	// the error propagated; there is no retry.
	ErrForward = errors.New("forward failure")
	// ErrInputAcquisition means reading the next turn's input failed. The
	// session is closed.
	ErrInputAcquisition = errors.New("input acquisition failure")
	// ErrInvalidConfig is returned at session construction for a
	// configuration that can never run.
	ErrInvalidConfig = errors.New("configuration violation")
	// ErrEmptyContext means nothing was left to feed the model after
	// truncation. Turn-local, like ErrEncoding.
	ErrEmptyContext = errors.New("empty context")
	// ErrSessionClosed is returned when a turn is requested from a session
	// that already terminated.
	ErrSessionClosed = errors.New("session closed")
)

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Recoverable reports whether the session can run another turn after err.
func Recoverable(err error) bool {
	return errors.Is(err, ErrEncoding) || errors.Is(err, ErrEmptyContext) || errors.Is(err, ErrForward)
}
