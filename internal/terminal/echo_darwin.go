package terminal

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

// Unread input is kept on darwin; it reaches the next line reader.
func (termios) flushInput(int) error { return nil }
