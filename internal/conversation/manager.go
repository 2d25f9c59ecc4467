package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
)

// Manager runs chat turns against a provider and persists sessions.
type Manager struct {
	storage    Storage
	provider   ai.ChatProvider
	maxHistory int
}

// NewManager creates a Manager. storage may be nil to disable persistence.
func NewManager(storage Storage, provider ai.ChatProvider, maxHistory int) *Manager {
	return &Manager{
		storage:    storage,
		provider:   provider,
		maxHistory: maxHistory,
	}
}

// Chat adds the user's text to the session, asks the provider for a reply
// and records it. On a provider error the user turn is rolled back so the
// history never holds an unanswered question.
func (m *Manager) Chat(ctx context.Context, s *Session, text string) (string, error) {
	if m.provider == nil {
		return "", errors.New("no chat provider configured")
	}

	s.AddMessage("user", text)

	reply, err := m.provider.Chat(ctx, s.MessagesForAI())
	if err != nil {
		s.Messages = s.Messages[:len(s.Messages)-1]
		return "", fmt.Errorf("chat: %w", err)
	}

	s.AddMessage("assistant", reply)
	s.Trim(m.maxHistory)

	if err := m.Save(s); err != nil {
		slog.Warn("Failed to save conversation", "id", s.ID, "err", err)
	}

	return reply, nil
}

// Save persists the session if storage is configured.
func (m *Manager) Save(s *Session) error {
	if m.storage == nil || len(s.Messages) == 0 {
		return nil
	}
	return m.storage.Save(s)
}

// Resume loads a stored session.
func (m *Manager) Resume(id string) (*Session, error) {
	if m.storage == nil {
		return nil, ErrNotFound
	}
	return m.storage.Get(id)
}

// List returns stored sessions, newest first.
func (m *Manager) List() ([]*Session, error) {
	if m.storage == nil {
		return nil, nil
	}
	return m.storage.List()
}

// Discard removes a stored session. A session that was never saved is not
// an error.
func (m *Manager) Discard(s *Session) error {
	if m.storage == nil {
		return nil
	}
	if err := m.storage.Delete(s.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
