package terminal

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

var (
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	refuseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// GateOptions configures a confirmation gate.
type GateOptions struct {
	// Secret switches the gate to secret mode when non-empty.
	Secret string
	// Timeout bounds a single prompt. Zero waits forever.
	Timeout time.Duration
	Audit   audit.Recorder
}

// ConsoleGate asks the operator on the terminal. It blocks until an answer
// arrives, the timeout expires or the context is cancelled.
type ConsoleGate struct {
	opts  GateOptions
	lines *LineReader
	out   io.Writer

	// fd is the terminal file descriptor used for echo-less secret entry,
	// or -1 when input is not a TTY.
	fd  int
	tty ttyControl
}

// NewConsoleGate creates a gate reading from os.Stdin through lines.
func NewConsoleGate(opts GateOptions, lines *LineReader) *ConsoleGate {
	fd := -1
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fd = int(os.Stdin.Fd())
	}
	return newConsoleGate(opts, lines, os.Stdout, fd)
}

// NewConsoleGateWithIO creates a gate over arbitrary streams (for testing).
// Secrets are read as plain lines.
func NewConsoleGateWithIO(opts GateOptions, input io.Reader, output io.Writer) *ConsoleGate {
	return newConsoleGate(opts, NewLineReader(input), output, -1)
}

func newConsoleGate(opts GateOptions, lines *LineReader, out io.Writer, fd int) *ConsoleGate {
	return &ConsoleGate{opts: opts.withDefaults(), lines: lines, out: out, fd: fd, tty: termios{}}
}

func (o GateOptions) withDefaults() GateOptions {
	if o.Audit == nil {
		o.Audit = audit.Discard
	}
	return o
}

// Confirm shows the request and reads one answer. It writes exactly one
// audit record before returning.
func (g *ConsoleGate) Confirm(ctx context.Context, req security.ConfirmRequest) bool {
	ctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	g.printRequest(req)

	var answer string
	var err error
	if g.opts.Secret != "" {
		fmt.Fprint(g.out, "Admin password: ")
		answer, err = g.readSecret(ctx)
		fmt.Fprintln(g.out)
	} else {
		fmt.Fprint(g.out, "Type 'yes' to continue: ")
		answer, err = g.lines.ReadLine(ctx)
	}
	if err != nil {
		slog.Warn("Confirmation prompt ended without an answer", "kind", req.Kind, "err", err)
	}

	ok := resolve(g.opts, req, answer, err)
	if ok {
		fmt.Fprintln(g.out, okStyle.Render("✓ Authorized"))
	} else {
		fmt.Fprintln(g.out, refuseStyle.Render("✗ Not authorized"))
	}
	return ok
}

func (g *ConsoleGate) printRequest(req security.ConfirmRequest) {
	fmt.Fprintf(g.out, "\n%s\n\n", warnStyle.Render("⚠️  This action needs your authorization"))
	fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Action:"), req.Kind)
	if req.Subject != "" {
		fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Target:"), req.Subject)
	}
	if req.Reason != "" {
		fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Reason:"), req.Reason)
	}
	fmt.Fprintln(g.out)
}

// readSecret reads the secret through the shared line reader with echo
// off, so an abandoned prompt leaves neither a hidden reader nor a silent
// terminal behind.
func (g *ConsoleGate) readSecret(ctx context.Context) (string, error) {
	if g.fd < 0 {
		return g.lines.ReadLine(ctx)
	}

	restore, err := g.tty.disableEcho(g.fd)
	if err != nil {
		// term.ReadPassword cannot be interrupted, so the timeout does not
		// apply here.
		slog.Debug("Echo control unavailable, reading secret without timeout", "err", err)
		b, err := term.ReadPassword(g.fd)
		return string(b), err
	}
	defer restore()

	line, err := g.lines.ReadLine(ctx)
	if err != nil && ctx.Err() != nil {
		if err := g.tty.flushInput(g.fd); err != nil {
			slog.Debug("Failed to flush terminal input", "err", err)
		}
	}
	return line, err
}

// resolve decides the answer and writes the gate's audit record. Every gate
// implementation goes through here so the record set is identical.
func resolve(opts GateOptions, req security.ConfirmRequest, answer string, readErr error) bool {
	var ok bool
	var outcome audit.Outcome

	if opts.Secret != "" {
		ok = readErr == nil && subtle.ConstantTimeCompare([]byte(answer), []byte(opts.Secret)) == 1
		outcome = audit.OutcomeAdminFailed
		if ok {
			outcome = audit.OutcomeAdminConfirmed
		}
	} else {
		ok = readErr == nil && strings.ToLower(strings.TrimSpace(answer)) == "yes"
		outcome = audit.OutcomeConfirmationDenied
		if ok {
			outcome = audit.OutcomeConfirmed
		}
	}

	rec := audit.Record{Kind: req.Kind, Subject: req.Subject, Outcome: outcome}
	if readErr != nil {
		rec.Err = readErr.Error()
	}
	if err := opts.Audit.Append(rec); err != nil {
		slog.Error("Failed to write audit record", "kind", req.Kind, "outcome", outcome, "err", err)
	}

	return ok
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
