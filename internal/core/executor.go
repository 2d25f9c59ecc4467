package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

// ExecutorOptions wires an Executor. Nil collaborators get safe defaults:
// the restrictive allowlist, a gate that refuses everything, and a
// discarding audit log.
type ExecutorOptions struct {
	Policy        *security.AllowlistPolicy
	Gate          Confirmer
	Audit         audit.Recorder
	Platform      Platform
	FS            FS
	Weather       WeatherService
	Reminders     ReminderScheduler
	ScreenshotDir string
}

// Executor authorizes and runs command intents.
type Executor struct {
	policy        *security.AllowlistPolicy
	keywords      *security.KeywordChecker
	gate          Confirmer
	audit         audit.Recorder
	platform      Platform
	fs            FS
	weather       WeatherService
	reminders     ReminderScheduler
	screenshotDir string
	now           func() time.Time
}

// NewExecutor creates an executor.
func NewExecutor(opts ExecutorOptions) *Executor {
	e := &Executor{
		policy:        opts.Policy,
		gate:          opts.Gate,
		audit:         opts.Audit,
		platform:      opts.Platform,
		fs:            opts.FS,
		weather:       opts.Weather,
		reminders:     opts.Reminders,
		screenshotDir: opts.ScreenshotDir,
		now:           time.Now,
	}

	if e.policy == nil {
		e.policy = security.DefaultAllowlist()
	}
	if e.audit == nil {
		e.audit = audit.Discard
	}
	if e.gate == nil {
		e.gate = refuseGate{audit: e.audit}
	}
	if e.platform == nil {
		e.platform = NewSystemPlatform()
	}
	if e.fs == nil {
		e.fs = OSFS{}
	}
	if e.screenshotDir == "" {
		e.screenshotDir = "screenshots"
	}
	e.keywords = security.NewKeywordChecker(e.policy)

	return e
}

// Policy returns the allowlist the executor enforces.
func (e *Executor) Policy() *security.AllowlistPolicy {
	return e.policy
}

// HandleCommand classifies an utterance and, if it is a command, authorizes
// and executes it. The bool is false when the utterance is not a command
// and should be answered conversationally. Failures are reported in the
// result string, never as errors.
func (e *Executor) HandleCommand(ctx context.Context, utterance string) (string, bool) {
	in := intent.Classify(utterance)
	if un, ok := in.(intent.Unrecognized); ok {
		if un.Err != nil {
			slog.Debug("Utterance looked like a command but was not parsed", "utterance", utterance, "err", un.Err)
		}
		return "", false
	}

	return e.Execute(ctx, in), true
}

// Execute runs one classified intent through authorization and execution.
// Every path that ends in an outcome leaves exactly one audit record.
func (e *Executor) Execute(ctx context.Context, in intent.Intent) string {
	if matches := e.keywords.Match(in.Subject()); len(matches) > 0 {
		slog.Warn("Command mentions dangerous keywords", "kind", in.Kind(), "subject", in.Subject(), "keywords", matches)
	}

	decision := security.Authorize(in, e.policy)
	slog.Debug("Authorized command", "kind", in.Kind(), "verdict", decision.Verdict, "reason", decision.Reason)

	switch in := in.(type) {
	case intent.RunProgram:
		return e.runProgram(ctx, in, decision)
	case intent.OpenFile:
		return e.openFile(in)
	case intent.DeleteFile:
		return e.deleteFile(ctx, in, decision)
	case intent.Screenshot:
		return e.screenshot(in)
	case intent.TypeText:
		return e.typeText(in)
	case intent.PowerOp:
		return e.power(ctx, in, decision)
	case intent.OpenURL:
		return e.openURL(in)
	case intent.WebSearch:
		return e.webSearch(in)
	case intent.Weather:
		return e.reportWeather(ctx, in)
	case intent.SetReminder:
		return e.setReminder(in)
	}

	e.record(in, audit.OutcomeDenied, nil)
	return "That is not a command I can run."
}

func (e *Executor) runProgram(ctx context.Context, in intent.RunProgram, d security.Decision) string {
	outcome := audit.OutcomeExecuted
	if d.NeedsConfirmation() {
		if !e.confirm(ctx, in, d.Reason) {
			return fmt.Sprintf("I won't run %s without authorization.", in.Program)
		}
		outcome = audit.OutcomeExecuteAdmin
	}

	argv := append([]string{in.Program}, in.Args...)
	if err := e.platform.Spawn(argv); err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't start %s.", in.Program)
	}

	e.record(in, outcome, nil)
	return fmt.Sprintf("Starting %s.", in.Program)
}

func (e *Executor) openFile(in intent.OpenFile) string {
	path, err := security.ExpandPath(in.Path)
	if err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't open %s.", in.Path)
	}

	if _, err := e.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.fail(in, ErrNotFound)
			return fmt.Sprintf("I couldn't find %s.", in.Path)
		}
		e.fail(in, err)
		return fmt.Sprintf("I couldn't open %s.", in.Path)
	}

	if err := e.platform.OpenFile(path); err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't open %s.", in.Path)
	}

	e.record(in, audit.OutcomeExecuted, nil)
	return fmt.Sprintf("Opening %s.", filepath.Base(path))
}

func (e *Executor) deleteFile(ctx context.Context, in intent.DeleteFile, d security.Decision) string {
	path, err := security.ExpandPath(in.Path)
	if err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't delete %s.", in.Path)
	}

	info, err := e.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.fail(in, ErrNotFound)
			return fmt.Sprintf("I couldn't find %s.", in.Path)
		}
		e.fail(in, err)
		return fmt.Sprintf("I couldn't delete %s.", in.Path)
	}

	outcome := audit.OutcomeExecuted
	if d.NeedsConfirmation() {
		reason := d.Reason
		if info.IsDir() {
			reason += "; the whole directory will be removed"
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			if target, err := security.ResolvePath(path); err == nil && target != path {
				reason += fmt.Sprintf("; only the link is removed, not %s", target)
			}
		}

		if !e.confirm(ctx, in, reason) {
			return fmt.Sprintf("I won't delete %s without authorization.", in.Path)
		}
		outcome = audit.OutcomeExecuteAdmin
	}

	if info.IsDir() {
		err = e.fs.RemoveAll(path)
	} else {
		err = e.fs.Remove(path)
	}
	if err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't delete %s.", in.Path)
	}

	e.record(in, outcome, nil)
	return fmt.Sprintf("Deleted %s.", in.Path)
}

func (e *Executor) screenshot(in intent.Screenshot) string {
	name := "screenshot_" + e.now().Format("20060102_150405") + ".png"
	path := filepath.Join(e.screenshotDir, name)

	if err := ensureDir(e.screenshotDir); err != nil {
		e.fail(in, err)
		return "I couldn't save the screenshot."
	}

	if err := e.platform.Screenshot(path); err != nil {
		e.fail(in, err)
		if errors.Is(err, ErrUnavailable) {
			return "Screenshots are not available here."
		}
		return "I couldn't take a screenshot."
	}

	e.recordSubject(in, path, audit.OutcomeExecuted, nil)
	return fmt.Sprintf("Screenshot saved to %s.", path)
}

func (e *Executor) typeText(in intent.TypeText) string {
	if err := e.platform.TypeText(in.Text); err != nil {
		e.fail(in, err)
		if errors.Is(err, ErrUnavailable) {
			return "Typing is not available here."
		}
		return "I couldn't type that."
	}

	e.record(in, audit.OutcomeExecuted, nil)
	return "Done typing."
}

func (e *Executor) power(ctx context.Context, in intent.PowerOp, d security.Decision) string {
	if !e.confirm(ctx, in, d.Reason) {
		return fmt.Sprintf("Okay, I won't %s.", in.Op)
	}

	if err := e.platform.Power(in.Op, PowerGrace); err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't %s the computer.", in.Op)
	}

	e.record(in, audit.OutcomeExecuteAdmin, nil)
	verb := "Shutting down"
	if in.Op == intent.PowerRestart {
		verb = "Restarting"
	}
	return fmt.Sprintf("%s in %d seconds.", verb, int(PowerGrace.Seconds()))
}

func (e *Executor) openURL(in intent.OpenURL) string {
	target := SiteURL(in.Site)
	if err := e.platform.OpenURL(target); err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't open %s.", in.Site)
	}

	e.recordSubject(in, target, audit.OutcomeExecuted, nil)
	return fmt.Sprintf("Opening %s.", in.Site)
}

func (e *Executor) webSearch(in intent.WebSearch) string {
	if err := e.platform.OpenURL(SearchURL(in.Query)); err != nil {
		e.fail(in, err)
		return fmt.Sprintf("I couldn't search for %s.", in.Query)
	}

	e.record(in, audit.OutcomeExecuted, nil)
	return fmt.Sprintf("Searching for %s.", in.Query)
}

func (e *Executor) reportWeather(ctx context.Context, in intent.Weather) string {
	if e.weather == nil {
		e.fail(in, ErrUnavailable)
		return "Weather is not available right now."
	}

	report, err := e.weather.Current(ctx, in.City)
	if err != nil {
		e.fail(in, err)
		return fmt.Sprintf("Sorry, I couldn't get the weather for %s.", in.City)
	}

	e.record(in, audit.OutcomeExecuted, nil)
	return report
}

func (e *Executor) setReminder(in intent.SetReminder) string {
	if e.reminders == nil {
		e.fail(in, ErrUnavailable)
		return "Reminders are not available right now."
	}

	if err := e.reminders.Schedule(in.Text, in.Delay); err != nil {
		e.fail(in, err)
		return "I couldn't set that reminder."
	}

	e.record(in, audit.OutcomeExecuted, nil)
	return fmt.Sprintf("I will remind you to %s in %d seconds.", in.Text, int(in.Delay.Seconds()))
}

// confirm consults the gate. The gate records its own outcome, which is the
// final record when it refuses.
func (e *Executor) confirm(ctx context.Context, in intent.Intent, reason string) bool {
	ok := e.gate.Confirm(ctx, security.ConfirmRequest{
		Kind:    string(in.Kind()),
		Subject: in.Subject(),
		Reason:  reason,
	})
	if !ok {
		slog.Info("Command refused at confirmation", "kind", in.Kind(), "subject", in.Subject())
	}
	return ok
}

func (e *Executor) fail(in intent.Intent, err error) {
	slog.Error("Command failed", "kind", in.Kind(), "subject", in.Subject(), "err", err)
	e.record(in, audit.OutcomeFailed, err)
}

func (e *Executor) record(in intent.Intent, outcome audit.Outcome, err error) {
	e.recordSubject(in, in.Subject(), outcome, err)
}

func (e *Executor) recordSubject(in intent.Intent, subject string, outcome audit.Outcome, err error) {
	rec := audit.Record{Kind: string(in.Kind()), Subject: subject, Outcome: outcome}
	if err != nil {
		rec.Err = err.Error()
	}
	if err := e.audit.Append(rec); err != nil {
		slog.Error("Failed to write audit record", "kind", rec.Kind, "outcome", outcome, "err", err)
	}
}

// SiteURL turns a spoken site name into a URL. Bare names get ".com".
func SiteURL(site string) string {
	site = strings.TrimSpace(site)
	if strings.Contains(site, "://") {
		return site
	}
	if strings.Contains(site, ".") {
		return "https://" + site
	}
	return "https://" + strings.ReplaceAll(strings.ToLower(site), " ", "") + ".com"
}

// SearchURL returns the web search URL for query.
func SearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// refuseGate stands in when no confirmation gate is configured.
type refuseGate struct {
	audit audit.Recorder
}

func (g refuseGate) Confirm(_ context.Context, req security.ConfirmRequest) bool {
	rec := audit.Record{
		Kind:    req.Kind,
		Subject: req.Subject,
		Outcome: audit.OutcomeConfirmationDenied,
		Err:     "no confirmation gate configured",
	}
	if err := g.audit.Append(rec); err != nil {
		slog.Error("Failed to write audit record", "kind", req.Kind, "err", err)
	}
	return false
}
