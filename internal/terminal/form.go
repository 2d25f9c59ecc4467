package terminal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/huh"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

// FormGate renders the confirmation prompt as a huh form.
type FormGate struct {
	opts GateOptions
}

// NewFormGate creates a form-based gate.
func NewFormGate(opts GateOptions) *FormGate {
	return &FormGate{opts: opts.withDefaults()}
}

// Confirm runs the form once and records the outcome.
func (g *FormGate) Confirm(ctx context.Context, req security.ConfirmRequest) bool {
	ctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var answer string
	input := huh.NewInput().
		Title("⚠️  Authorize " + req.Kind + ": " + req.Subject).
		Description(req.Reason).
		Value(&answer)

	if g.opts.Secret != "" {
		input = input.Placeholder("admin password").EchoMode(huh.EchoModePassword)
	} else {
		input = input.Placeholder("type 'yes' to continue")
	}

	err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx)
	if err != nil && !errors.Is(err, huh.ErrUserAborted) {
		slog.Warn("Confirmation form ended without an answer", "kind", req.Kind, "err", err)
	}

	return resolve(g.opts, req, answer, err)
}
