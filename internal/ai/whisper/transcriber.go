// Package whisper transcribes recordings locally with whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
	"github.com/Lin-Jiong-HDU/jarvis/internal/voice/wavio"
)

// Transcriber implements ai.Transcriber with a local ggml model.
type Transcriber struct {
	mu       sync.Mutex
	model    whisper.Model
	language string
}

// NewTranscriber loads the model at modelPath. language is "auto" or an
// ISO code.
func NewTranscriber(modelPath, language string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if language == "" {
		language = "auto"
	}
	return &Transcriber{model: m, language: language}, nil
}

// Close frees the model.
func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe reads a 16 kHz mono WAV file and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	pcm, rate, err := wavio.Read(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if rate != wavio.SampleRate {
		return "", fmt.Errorf("sample rate %d Hz, want %d Hz", rate, wavio.SampleRate)
	}
	if len(pcm) == 0 {
		return "", ai.ErrNoSpeech
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", ai.ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}
