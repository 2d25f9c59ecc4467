package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// runUtterance handles `jarvis <utterance...>`: one typed turn, then exit.
func runUtterance(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	a, err := newApp(appConfig, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	reply, err := a.engine.Process(ctx, a.newSession(), strings.Join(args, " "))
	if err != nil {
		slog.Warn("Engine error", "err", err)
	}
	if reply.Text != "" {
		fmt.Println(reply.Text)
	}

	waitPending(ctx, a, os.Stdout)
	return nil
}

// waitPending keeps the process alive until scheduled work is done: a
// shutdown or restart in its grace period, and reminders that have not
// fired. Ctrl+C cancels the power operation and drops the reminders.
func waitPending(ctx context.Context, a *app, w io.Writer) {
	if a.platform.PowerPending() && !a.platform.WaitPower(ctx) {
		fmt.Fprintln(w, "Power operation cancelled.")
		return
	}

	if n := len(a.reminders.Pending()); n > 0 {
		fmt.Fprintf(w, "Waiting for %d reminder(s), press Ctrl+C to drop them.\n", n)
		if !a.reminders.Wait(ctx) {
			fmt.Fprintln(w, "Pending reminders dropped.")
		}
	}
}
