package terminal

import (
	"context"
	"errors"
	"sync"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

var errNoScriptedAnswer = errors.New("no scripted answer left")

// ScriptedGate answers confirmation requests from a fixed script. It keeps
// the audit behavior of the interactive gates and is meant for tests and
// unattended runs. Once the script is exhausted every request is refused.
type ScriptedGate struct {
	opts GateOptions

	mu       sync.Mutex
	answers  []string
	requests []security.ConfirmRequest
}

// NewScriptedGate creates a gate that replays answers in order.
func NewScriptedGate(opts GateOptions, answers ...string) *ScriptedGate {
	return &ScriptedGate{opts: opts.withDefaults(), answers: answers}
}

// Confirm consumes the next scripted answer.
func (g *ScriptedGate) Confirm(ctx context.Context, req security.ConfirmRequest) bool {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	var answer string
	err := ctx.Err()
	if err == nil {
		if len(g.answers) == 0 {
			err = errNoScriptedAnswer
		} else {
			answer, g.answers = g.answers[0], g.answers[1:]
		}
	}
	g.mu.Unlock()

	return resolve(g.opts, req, answer, err)
}

// Requests returns every request seen so far.
func (g *ScriptedGate) Requests() []security.ConfirmRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]security.ConfirmRequest, len(g.requests))
	copy(out, g.requests)
	return out
}
