package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
)

// DefaultPersona is the system prompt used when no persona is configured.
const DefaultPersona = "You are Jarvis, a personal assistant. You are witty and full of personality. Your answers should be limited to 1-2 short sentences."

// Session is one conversation with the assistant: a persona prompt plus the
// turns exchanged so far. A Session is not safe for concurrent use; the
// engine serializes access.
type Session struct {
	ID        string    `json:"id"`
	Persona   string    `json:"persona"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSession starts a conversation with the given persona prompt.
func NewSession(persona string) *Session {
	if persona == "" {
		persona = DefaultPersona
	}

	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Persona:   persona,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset forgets every turn and gives the session a new identity. The
// persona is kept.
func (s *Session) Reset() {
	now := time.Now()
	s.ID = uuid.New().String()
	s.Messages = []Message{}
	s.CreatedAt = now
	s.UpdatedAt = now
}

// AddMessage appends a turn.
func (s *Session) AddMessage(role, content string) {
	now := time.Now()
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// Trim drops the oldest turns so that at most max remain. max <= 0 keeps
// everything.
func (s *Session) Trim(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-max:]...)
}

// MessagesForAI returns the persona prompt followed by the turns.
func (s *Session) MessagesForAI() []ai.Message {
	messages := make([]ai.Message, 0, len(s.Messages)+1)
	messages = append(messages, ai.Message{Role: "system", Content: s.Persona})
	for _, m := range s.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
