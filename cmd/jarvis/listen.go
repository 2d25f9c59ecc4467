package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ai"
	"github.com/Lin-Jiong-HDU/jarvis/internal/voice"
)

var listenOnce bool

var (
	heardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	replyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func getListenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Voice loop: record, transcribe, answer aloud",
		Args:  cobra.NoArgs,
		RunE:  runListen,
	}

	cmd.Flags().BoolVar(&listenOnce, "once", false, "Handle a single utterance and exit")

	return cmd
}

func runListen(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.newPipeline(a.newSession())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for ctx.Err() == nil {
		fmt.Println("🎙  Listening...")

		turn, err := pipeline.Listen(ctx)
		switch {
		case errors.Is(err, ai.ErrNoSpeech), errors.Is(err, voice.ErrNoAudio):
			fmt.Println(heardStyle.Render("I didn't catch that."))
		case err != nil && ctx.Err() == nil:
			slog.Error("Voice turn failed", "err", err)
			return err
		case err == nil:
			fmt.Println(heardStyle.Render("you: " + turn.Heard))
			fmt.Println(replyStyle.Render("jarvis: " + turn.Reply.Text))
		}

		if listenOnce {
			break
		}
	}

	waitPending(ctx, a, os.Stdout)
	return nil
}
