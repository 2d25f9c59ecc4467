// Package execution runs assistant turns: it glues recording, transcription,
// the engine and speech output together.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
	"github.com/Lin-Jiong-HDU/jarvis/internal/conversation"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/queue"
	"github.com/Lin-Jiong-HDU/jarvis/internal/voice/wavio"
)

// Job sources.
const (
	SourceTrigger = "trigger"
	SourceSay     = "say"
	SourceBus     = "bus"
)

// Processor answers one utterance.
type Processor interface {
	Process(ctx context.Context, s *conversation.Session, utterance string) (core.Reply, error)
}

// Recorder captures one utterance of audio.
type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

// Speaker turns text into a playable audio file.
type Speaker interface {
	Speak(ctx context.Context, text string) string
}

// Player plays an audio file.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Options wires a Pipeline. Voice collaborators may be nil for a text-only
// pipeline.
type Options struct {
	Engine        Processor
	Session       *conversation.Session
	Recorder      Recorder
	Transcriber   ai.Transcriber
	Speaker       Speaker
	Player        Player
	RecordingPath string
}

// Turn is the outcome of one pass through the pipeline.
type Turn struct {
	Heard string
	Reply core.Reply
}

// Pipeline runs turns against one conversation session. It is not safe for
// concurrent use; the queue worker or the listen loop owns it.
type Pipeline struct {
	opts Options
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.Session == nil {
		opts.Session = conversation.NewSession("")
	}
	if opts.RecordingPath == "" {
		opts.RecordingPath = "recording.wav"
	}
	return &Pipeline{opts: opts}
}

// Session returns the conversation the pipeline feeds.
func (p *Pipeline) Session() *conversation.Session {
	return p.opts.Session
}

// Listen records one utterance, transcribes it and answers it aloud.
// An empty transcript yields ai.ErrNoSpeech and no reply.
func (p *Pipeline) Listen(ctx context.Context) (Turn, error) {
	if p.opts.Recorder == nil || p.opts.Transcriber == nil {
		return Turn{}, errors.New("voice input is not configured")
	}

	pcm, err := p.opts.Recorder.Record(ctx)
	if err != nil {
		return Turn{}, fmt.Errorf("record: %w", err)
	}

	if err := wavio.Write(p.opts.RecordingPath, pcm, wavio.SampleRate); err != nil {
		return Turn{}, fmt.Errorf("save recording: %w", err)
	}

	text, err := p.opts.Transcriber.Transcribe(ctx, p.opts.RecordingPath)
	if err != nil {
		return Turn{}, fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ai.ErrNoSpeech
	}

	slog.Info("Heard utterance", "text", text)

	reply, err := p.Respond(ctx, text, true)
	return Turn{Heard: text, Reply: reply}, err
}

// Respond answers a text utterance, speaking the reply when aloud is set.
// The reply text is returned even when speech fails.
func (p *Pipeline) Respond(ctx context.Context, text string, aloud bool) (core.Reply, error) {
	reply, err := p.opts.Engine.Process(ctx, p.opts.Session, text)
	if err != nil {
		slog.Warn("Engine error", "err", err)
	}
	if reply.Text == "" {
		return reply, err
	}

	if aloud {
		p.say(ctx, reply.Text)
	}
	return reply, err
}

// say speaks text; failures are logged, never returned.
func (p *Pipeline) say(ctx context.Context, text string) {
	if p.opts.Speaker == nil {
		return
	}

	path := p.opts.Speaker.Speak(ctx, text)
	if path == "" {
		slog.Warn("Speech unavailable, reply not spoken")
		return
	}
	if p.opts.Player == nil {
		return
	}
	if err := p.opts.Player.Play(ctx, path); err != nil {
		slog.Warn("Playback failed", "path", path, "err", err)
	}
}

// Handler adapts the pipeline to the utterance queue. A job without an
// utterance starts a voice turn; bus jobs are answered in text only.
func (p *Pipeline) Handler() queue.Handler {
	return func(ctx context.Context, job queue.Job) (string, error) {
		if job.Utterance == "" {
			turn, err := p.Listen(ctx)
			if err != nil {
				return "", err
			}
			return turn.Reply.Text, nil
		}

		aloud := !strings.HasPrefix(job.Source, SourceBus)
		reply, err := p.Respond(ctx, job.Utterance, aloud)
		if reply.Text != "" {
			return reply.Text, nil
		}
		return "", err
	}
}
