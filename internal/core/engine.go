package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Lin-Jiong-HDU/jarvis/internal/conversation"
)

// Chatter answers utterances that are not commands.
type Chatter interface {
	Chat(ctx context.Context, s *conversation.Session, text string) (string, error)
}

// Reply is the engine's answer to one utterance.
type Reply struct {
	Text string
	// Command is true when the utterance was handled as a command.
	Command bool
	// Reset is true when the utterance started a new conversation.
	Reset bool
}

var resetPhrases = []string{"new conversation", "start over"}

// Engine runs one utterance at a time through the command core and falls
// back to conversation for everything else.
type Engine struct {
	mu       sync.Mutex
	executor *Executor
	chat     Chatter
}

// NewEngine creates a new engine
func NewEngine(executor *Executor, chat Chatter) *Engine {
	return &Engine{
		executor: executor,
		chat:     chat,
	}
}

// Process handles a single utterance for session. Concurrent callers are
// serialized because the confirmation gate is a single interactive prompt.
// The returned error reports a chat failure; Reply.Text is still usable.
func (e *Engine) Process(ctx context.Context, s *conversation.Session, utterance string) (Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	text := strings.TrimSpace(utterance)
	if text == "" {
		return Reply{}, nil
	}

	// Commands win over reset phrases, so a path such as
	// "start over.docx" still reaches the classifier.
	if result, ok := e.executor.HandleCommand(ctx, text); ok {
		return Reply{Text: result, Command: true}, nil
	}

	if isReset(text) {
		s.Reset()
		slog.Info("Started a new conversation", "session", s.ID)
		return Reply{Text: "Starting a new conversation.", Reset: true}, nil
	}

	if e.chat == nil {
		return Reply{Text: "I can only run commands right now."}, nil
	}

	answer, err := e.chat.Chat(ctx, s, text)
	if err != nil {
		return Reply{Text: "Sorry, I can't answer that right now."}, fmt.Errorf("conversation: %w", err)
	}

	return Reply{Text: answer}, nil
}

func isReset(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range resetPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
