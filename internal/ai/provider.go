package ai

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by a Transcriber when the audio holds no words.
var ErrNoSpeech = errors.New("no speech recognized")

// Message represents a chat message
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatProvider completes a conversation.
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Transcriber turns a recorded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// SpeechSynthesizer renders text as encoded audio (mp3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
