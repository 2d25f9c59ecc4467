package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
	"github.com/Lin-Jiong-HDU/jarvis/internal/ai/openai"
	"github.com/Lin-Jiong-HDU/jarvis/internal/ai/whisper"
	"github.com/Lin-Jiong-HDU/jarvis/internal/conversation"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/execution"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
	"github.com/Lin-Jiong-HDU/jarvis/internal/reminder"
	"github.com/Lin-Jiong-HDU/jarvis/internal/storage"
	"github.com/Lin-Jiong-HDU/jarvis/internal/terminal"
	"github.com/Lin-Jiong-HDU/jarvis/internal/voice"
	"github.com/Lin-Jiong-HDU/jarvis/internal/weather"
)

var reminderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)

// app holds the collaborators shared by every command.
type app struct {
	cfg       *storage.Config
	out       io.Writer
	lines     *terminal.LineReader
	auditLog  *audit.Log
	platform  *core.SystemPlatform
	reminders *reminder.Scheduler
	executor  *core.Executor
	engine    *core.Engine
	manager   *conversation.Manager
	personas  *conversation.PersonaLoader
	client    *openai.Client

	closers []func() error
}

func newApp(cfg *storage.Config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: out, lines: terminal.NewLineReader(os.Stdin)}

	auditLog, err := audit.Open(cfg.Security.AuditLog)
	if err != nil {
		return nil, err
	}
	a.auditLog = auditLog
	a.closers = append(a.closers, auditLog.Close)

	if cfg.AI.APIKey != "" {
		client, err := openai.NewClient(openai.Config{
			APIKey:          cfg.AI.APIKey,
			BaseURL:         cfg.AI.BaseURL,
			Model:           cfg.AI.Model,
			TranscribeModel: cfg.AI.TranscribeModel,
			SpeechModel:     cfg.AI.SpeechModel,
			Voice:           cfg.AI.Voice,
			Proxy:           cfg.AI.Proxy,
			Timeout:         cfg.AITimeout(),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
		a.client = client
	} else {
		slog.Info("No API key configured, chat and speech synthesis are off")
	}

	a.reminders = reminder.NewScheduler(func(msg string) {
		slog.Info("Reminder fired", "msg", msg)
		fmt.Fprintln(a.out, "\n"+reminderStyle.Render("⏰ "+msg))
	})
	a.closers = append(a.closers, func() error { a.reminders.Stop(); return nil })

	a.platform = core.NewSystemPlatform()
	a.executor = core.NewExecutor(core.ExecutorOptions{
		Policy:        security.LoadAllowlist(cfg.Security.AllowlistPath),
		Gate:          a.newGate(),
		Audit:         auditLog,
		Platform:      a.platform,
		Weather:       weather.New(weather.Options{GeocodingURL: cfg.Weather.GeocodingURL, ForecastURL: cfg.Weather.ForecastURL}),
		Reminders:     a.reminders,
		ScreenshotDir: cfg.Executor.ScreenshotDir,
	})

	if err := conversation.EnsureDefaultPersonas(cfg.PersonasDir()); err != nil {
		slog.Warn("Failed to write default personas", "err", err)
	}
	a.personas = conversation.NewPersonaLoader(cfg.PersonasDir())

	var store conversation.Storage
	if cfg.Chat.AutoSave {
		store = conversation.NewFileStorage(cfg.ConversationsDir())
	}
	var provider ai.ChatProvider
	var chat core.Chatter
	if a.client != nil {
		provider = a.client
	}
	a.manager = conversation.NewManager(store, provider, cfg.Chat.MaxHistory)
	if provider != nil {
		chat = a.manager
	}
	a.engine = core.NewEngine(a.executor, chat)

	return a, nil
}

func (a *app) newGate() core.Confirmer {
	opts := terminal.GateOptions{
		Secret:  a.cfg.Security.AdminSecret,
		Timeout: a.cfg.ConfirmTimeout(),
		Audit:   a.auditLog,
	}
	if a.cfg.Security.ConfirmStyle == storage.ConfirmStyleForm {
		return terminal.NewFormGate(opts)
	}
	return terminal.NewConsoleGate(opts, a.lines)
}

func (a *app) newSession() *conversation.Session {
	return conversation.NewSession(a.personas.Resolve(a.cfg.Chat.Persona))
}

// newPipeline builds the voice pipeline. Audio devices and models are
// opened here, so text-only commands never touch them.
func (a *app) newPipeline(session *conversation.Session) (*execution.Pipeline, error) {
	var transcriber ai.Transcriber
	if a.cfg.UseLocalTranscriber() {
		local, err := whisper.NewTranscriber(a.cfg.AI.WhisperModel, a.cfg.AI.Language)
		if err != nil {
			return nil, fmt.Errorf("load whisper model: %w", err)
		}
		a.closers = append(a.closers, local.Close)
		transcriber = local
	} else if a.client != nil {
		transcriber = a.client
	}

	var synth ai.SpeechSynthesizer
	if a.client != nil {
		synth = a.client
	}

	recorder := voice.NewRecorder(voice.DefaultRecorderOptions())
	a.closers = append(a.closers, recorder.Close)

	return execution.NewPipeline(execution.Options{
		Engine:        a.engine,
		Session:       session,
		Recorder:      recorder,
		Transcriber:   transcriber,
		Speaker:       voice.NewSpeaker(synth, a.cfg.Voice.ResponseDir),
		Player:        voice.NewPlayer(),
		RecordingPath: a.cfg.Voice.RecordingPath,
	}), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Debug("Close failed", "err", err)
		}
	}
	a.closers = nil
}
