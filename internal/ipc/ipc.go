// Package ipc lets other processes poke a running daemon over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Commands understood by the daemon.
const (
	CmdListen      = "listen"
	CmdSay         = "say"
	CmdPing        = "ping"
	CmdCancelPower = "cancel-power"
)

// DefaultSocketName is the socket file created under the jarvis home.
const DefaultSocketName = "jarvis.sock"

const ioTimeout = 5 * time.Second

// ControlMessage is one request sent to the daemon.
type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

// Response acknowledges a ControlMessage.
type Response struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandlerFunc answers one control message.
type HandlerFunc func(ControlMessage) Response

// Server accepts control messages on a unix socket.
type Server struct {
	path    string
	handler HandlerFunc
	ln      net.Listener
	wg      sync.WaitGroup
}

// Listen binds the socket, replacing a stale one left by a crashed daemon.
func Listen(path string, handler HandlerFunc) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		conn.Close()
		return nil, fmt.Errorf("daemon already listening on %s", path)
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	return &Server{path: path, handler: handler, ln: ln}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				_ = os.Remove(s.path)
				return nil
			}
			slog.Warn("IPC accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		slog.Debug("IPC bad message", "err", err)
		_ = json.NewEncoder(conn).Encode(Response{Error: "malformed message"})
		return
	}

	resp := s.handler(msg)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		slog.Debug("IPC reply failed", "err", err)
	}
}

// Send delivers msg to the daemon at path and waits for its acknowledgement.
func Send(path string, msg ControlMessage) (Response, error) {
	conn, err := net.DialTimeout("unix", path, ioTimeout)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read reply: %w", err)
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
