package terminal

import "errors"

var errEchoUnsupported = errors.New("echo control is not supported on this platform")

// ttyControl switches terminal echo around secret entry. The terminal stays
// in line mode so the shared LineReader keeps reading whole lines.
type ttyControl interface {
	disableEcho(fd int) (restore func(), err error)
	// flushInput drops typed but unread input, such as half a password
	// left behind by a timed out prompt.
	flushInput(fd int) error
}

type termios struct{}
