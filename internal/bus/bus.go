// Package bus connects jarvis to a shared websocket message bus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message kinds.
const (
	KindUtterance = "utterance"
	KindReply     = "reply"
)

const writeTimeout = 10 * time.Second

// Message is one JSON frame on the bus.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Audio   []byte `json:"audio,omitempty"`
}

// Bus is a websocket connection to the message bus. Reads must come from a
// single goroutine; writes may be concurrent.
type Bus struct {
	name string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to the bus at wsURL and identifies as name.
func Dial(ctx context.Context, wsURL, name string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url must be ws:// or wss://, got %q", wsURL)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	slog.Info("Connected to bus", "url", wsURL)
	return &Bus{name: name, conn: conn}, nil
}

// Name is the sender name used on replies.
func (b *Bus) Name() string {
	return b.name
}

// Read blocks for the next message addressed to this client. Frames that
// are not JSON or are addressed elsewhere are skipped.
func (b *Bus) Read() (Message, error) {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			slog.Warn("Bus frame is not a message", "err", err)
			continue
		}
		if m.To != "" && m.To != b.name {
			continue
		}
		if m.From == b.name {
			continue
		}
		return m, nil
	}
}

// Write sends m, filling in the sender.
func (b *Bus) Write(m Message) error {
	if m.From == "" {
		m.From = b.name
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Reply answers the sender of req.
func (b *Bus) Reply(req Message, content string) error {
	return b.Write(Message{To: req.From, Kind: KindReply, Content: content})
}

// Close sends a close frame and closes the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.mu.Unlock()
	return b.conn.Close()
}

// Serve reads utterances until ctx is cancelled or the connection drops,
// passing each to handle.
func (b *Bus) Serve(ctx context.Context, handle func(Message)) error {
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	for {
		m, err := b.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bus read: %w", err)
		}
		if m.Kind != KindUtterance || m.Content == "" {
			continue
		}
		handle(m)
	}
}
