package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
)

// Speaker turns reply text into an audio file. The primary synthesizer is
// tried first and espeak-ng is the local fallback.
type Speaker struct {
	synth ai.SpeechSynthesizer
	dir   string

	// espeak is the fallback command; it receives the output path and text.
	espeak func(ctx context.Context, path, text string) error
}

// NewSpeaker creates a speaker writing responses under dir. synth may be nil.
func NewSpeaker(synth ai.SpeechSynthesizer, dir string) *Speaker {
	return &Speaker{synth: synth, dir: dir, espeak: runEspeak}
}

// Speak renders text and returns the audio file path, or "" when neither
// the synthesizer nor the fallback produced audio.
func (s *Speaker) Speak(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		slog.Error("Failed to create response dir", "dir", s.dir, "err", err)
		return ""
	}

	if s.synth != nil {
		path := filepath.Join(s.dir, "response.mp3")
		audio, err := s.synth.Synthesize(ctx, text)
		if err == nil {
			err = os.WriteFile(path, audio, 0o644)
		}
		if err == nil {
			return path
		}
		slog.Warn("Speech synthesis failed, falling back to espeak-ng", "err", err)
	}

	path := filepath.Join(s.dir, "response.wav")
	if err := s.espeak(ctx, path, text); err != nil {
		slog.Error("Local speech synthesis failed", "err", err)
		return ""
	}
	return path
}

func runEspeak(ctx context.Context, path, text string) error {
	bin, err := exec.LookPath("espeak-ng")
	if err != nil {
		return fmt.Errorf("espeak-ng: %w", err)
	}

	out, err := exec.CommandContext(ctx, bin, "-w", path, "--", text).CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak-ng: %w: %s", err, out)
	}
	return nil
}
