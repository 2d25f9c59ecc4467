package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketPath keeps the path short; unix socket paths are limited to ~100 bytes.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "jv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startServer(t *testing.T, handler HandlerFunc) (string, context.CancelFunc, chan error) {
	t.Helper()
	path := socketPath(t)

	srv, err := Listen(path, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(cancel)

	return path, cancel, done
}

func TestSend_RoundTrip(t *testing.T) {
	received := make(chan ControlMessage, 1)
	path, _, _ := startServer(t, func(msg ControlMessage) Response {
		received <- msg
		return Response{OK: true, Reply: "on it"}
	})

	resp, err := Send(path, ControlMessage{Cmd: CmdSay, Text: "run notepad"})
	require.NoError(t, err)
	assert.Equal(t, "on it", resp.Reply)
	assert.Equal(t, ControlMessage{Cmd: CmdSay, Text: "run notepad"}, <-received)
}

func TestSend_HandlerError(t *testing.T) {
	path, _, _ := startServer(t, func(ControlMessage) Response {
		return Response{Error: "queue is full"}
	})

	_, err := Send(path, ControlMessage{Cmd: CmdListen})
	assert.EqualError(t, err, "queue is full")
}

func TestSend_NoDaemon(t *testing.T) {
	_, err := Send(socketPath(t), ControlMessage{Cmd: CmdPing})
	assert.ErrorContains(t, err, "connect to daemon")
}

func TestServer_MalformedMessage(t *testing.T) {
	path, _, _ := startServer(t, func(ControlMessage) Response {
		t.Error("handler must not run for malformed input")
		return Response{}
	})

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "malformed message")
}

func TestServer_ShutdownRemovesSocket(t *testing.T) {
	path, cancel, done := startServer(t, func(ControlMessage) Response {
		return Response{OK: true}
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.NoFileExists(t, path)
}

func TestListen_StaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := Listen(path, func(ControlMessage) Response { return Response{OK: true} })
	require.NoError(t, err)
	assert.Equal(t, path, srv.Path())
	srv.ln.Close()
}

func TestListen_AlreadyRunning(t *testing.T) {
	path, _, _ := startServer(t, func(ControlMessage) Response { return Response{OK: true} })

	_, err := Listen(path, func(ControlMessage) Response { return Response{OK: true} })
	assert.ErrorContains(t, err, "already listening")
}
