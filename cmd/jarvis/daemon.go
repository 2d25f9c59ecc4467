package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/bus"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/execution"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/queue"
	"github.com/Lin-Jiong-HDU/jarvis/internal/ipc"
)

var (
	daemonBusURL  string
	daemonBusName string
)

func getDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run in the background, waiting for triggers",
		Long: `Listen on a unix socket for "jarvis trigger" and optionally join a
websocket bus whose utterance messages are answered on the bus.`,
		Args: cobra.NoArgs,
		RunE: runDaemon,
	}

	cmd.Flags().StringVar(&daemonBusURL, "bus", "", "Websocket bus URL (ws://...)")
	cmd.Flags().StringVar(&daemonBusName, "name", "jarvis", "Name on the bus")

	return cmd
}

// busReplies remembers which bus message each queued job answers.
type busReplies struct {
	mu      sync.Mutex
	pending map[string]bus.Message
}

func (b *busReplies) add(jobID string, m bus.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[jobID] = m
}

func (b *busReplies) take(jobID string) (bus.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.pending[jobID]
	delete(b.pending, jobID)
	return m, ok
}

func runDaemon(cmd *cobra.Command, args []string) error {
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

	q := queue.New(a.cfg.Queue.Capacity, pipeline.Handler())
	q.OnDone(func(job queue.Job) {
		slog.Info("Job finished", "id", job.ID, "source", job.Source, "status", job.Status)
	})

	var busConn *bus.Bus
	replies := &busReplies{pending: make(map[string]bus.Message)}
	if daemonBusURL != "" {
		busConn, err = bus.Dial(ctx, daemonBusURL, daemonBusName)
		if err != nil {
			return err
		}
		q.OnDone(func(job queue.Job) {
			req, ok := replies.take(job.ID)
			if !ok {
				return
			}
			text := job.Result
			if job.Status == queue.JobStatusFailed {
				text = "Sorry, something went wrong."
			}
			if err := busConn.Reply(req, text); err != nil {
				slog.Warn("Bus reply failed", "err", err)
			}
		})
	}

	srv, err := ipc.Listen(a.cfg.Voice.SocketPath, controlHandler(a, q))
	if err != nil {
		return err
	}

	errc := make(chan error, 3)
	go func() { errc <- q.Run(ctx) }()
	go func() { errc <- srv.Serve(ctx) }()
	if busConn != nil {
		go func() {
			errc <- busConn.Serve(ctx, func(m bus.Message) {
				job, err := q.Submit(execution.SourceBus+":"+m.From, m.Content)
				if err != nil {
					slog.Warn("Bus utterance rejected", "from", m.From, "err", err)
					_ = busConn.Reply(m, "I'm busy right now, try again in a moment.")
					return
				}
				replies.add(job.ID, m)
			})
		}()
	}

	slog.Info("Daemon ready", "socket", srv.Path(), "bus", daemonBusURL)

	select {
	case <-ctx.Done():
	case err = <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Daemon component stopped", "err", err)
		}
	}

	cancel()
	q.Close()
	slog.Info("Daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// controlHandler answers messages from "jarvis trigger".
func controlHandler(a *app, q *queue.Queue) ipc.HandlerFunc {
	return func(msg ipc.ControlMessage) ipc.Response {
		switch msg.Cmd {
		case ipc.CmdPing:
			return ipc.Response{OK: true, Reply: "pong"}

		case ipc.CmdListen:
			job, err := q.Submit(execution.SourceTrigger, "")
			if err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Reply: "listening (job " + job.ID + ")"}

		case ipc.CmdSay:
			text := strings.TrimSpace(msg.Text)
			if text == "" {
				return ipc.Response{Error: "nothing to say"}
			}
			job, err := q.Submit(execution.SourceSay, text)
			if err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Reply: "queued (job " + job.ID + ")"}

		case ipc.CmdCancelPower:
			if a.platform.CancelPower() {
				return ipc.Response{OK: true, Reply: "power operation cancelled"}
			}
			return ipc.Response{OK: true, Reply: "no power operation pending"}

		default:
			return ipc.Response{Error: fmt.Sprintf("unknown command %q", msg.Cmd)}
		}
	}
}
