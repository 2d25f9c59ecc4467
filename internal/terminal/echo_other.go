//go:build !linux && !darwin

package terminal

func (termios) disableEcho(int) (func(), error) { return nil, errEchoUnsupported }

func (termios) flushInput(int) error { return nil }
