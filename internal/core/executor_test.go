package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
	"github.com/Lin-Jiong-HDU/jarvis/internal/terminal"
)

type fakePlatform struct {
	mu          sync.Mutex
	spawned     [][]string
	opened      []string
	urls        []string
	screenshots []string
	typed       []string
	power       []intent.PowerKind
	err         error
}

func (p *fakePlatform) Spawn(argv []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.spawned = append(p.spawned, argv)
	return nil
}

func (p *fakePlatform) OpenFile(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.opened = append(p.opened, path)
	return nil
}

func (p *fakePlatform) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePlatform) TypeText(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.typed = append(p.typed, text)
	return nil
}

func (p *fakePlatform) Power(op intent.PowerKind, grace time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.power = append(p.power, op)
	return nil
}

func (p *fakePlatform) OpenURL(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.urls = append(p.urls, url)
	return nil
}

type fakeWeather struct {
	report string
	err    error
}

func (w fakeWeather) Current(_ context.Context, city string) (string, error) {
	return w.report, w.err
}

type fakeReminders struct {
	texts  []string
	delays []time.Duration
}

func (r *fakeReminders) Schedule(text string, delay time.Duration) error {
	r.texts = append(r.texts, text)
	r.delays = append(r.delays, delay)
	return nil
}

type executorFixture struct {
	exec      *Executor
	platform  *fakePlatform
	audit     *audit.Memory
	gate      *terminal.ScriptedGate
	reminders *fakeReminders
	dir       string
}

func newFixture(t *testing.T, policy *security.AllowlistPolicy, answers ...string) *executorFixture {
	t.Helper()

	f := &executorFixture{
		platform:  &fakePlatform{},
		audit:     &audit.Memory{},
		reminders: &fakeReminders{},
		dir:       t.TempDir(),
	}
	f.gate = terminal.NewScriptedGate(terminal.GateOptions{Audit: f.audit}, answers...)
	f.exec = NewExecutor(ExecutorOptions{
		Policy:        policy,
		Gate:          f.gate,
		Audit:         f.audit,
		Platform:      f.platform,
		Weather:       fakeWeather{report: "The current temperature in Oslo is 3.5 degrees Celsius."},
		Reminders:     f.reminders,
		ScreenshotDir: filepath.Join(f.dir, "shots"),
	})
	return f
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestHandleCommand_Unrecognized(t *testing.T) {
	f := newFixture(t, nil)

	for _, u := range []string{"tell me a joke", "", "remind me to call in soon"} {
		result, ok := f.exec.HandleCommand(context.Background(), u)
		assert.False(t, ok, u)
		assert.Empty(t, result)
	}
	assert.Empty(t, f.audit.Records())
	assert.Empty(t, f.gate.Requests())
}

func TestRunProgram(t *testing.T) {
	policy := &security.AllowlistPolicy{Programs: []string{"notepad"}}

	t.Run("allowlisted spawns without confirmation", func(t *testing.T) {
		f := newFixture(t, policy)

		result, ok := f.exec.HandleCommand(context.Background(), "run C:\\Windows\\notepad.exe")
		require.True(t, ok)
		assert.Contains(t, result, "Starting")
		assert.Equal(t, [][]string{{"C:\\Windows\\notepad.exe"}}, f.platform.spawned)
		assert.Empty(t, f.gate.Requests())
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeExecuted))
	})

	t.Run("arguments are passed as a vector", func(t *testing.T) {
		f := newFixture(t, policy)

		f.exec.HandleCommand(context.Background(), "run notepad a.txt; rm -rf /")
		require.Len(t, f.platform.spawned, 1)
		assert.Equal(t, []string{"notepad", "a.txt;", "rm", "-rf", "/"}, f.platform.spawned[0])
	})

	t.Run("not allowlisted and confirmed", func(t *testing.T) {
		f := newFixture(t, policy, "yes")

		result, _ := f.exec.HandleCommand(context.Background(), "run calc")
		assert.Contains(t, result, "Starting calc")
		assert.Len(t, f.platform.spawned, 1)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeConfirmed))
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeExecuteAdmin))
		assert.Len(t, f.audit.Records(), 2)
	})

	t.Run("not allowlisted and refused", func(t *testing.T) {
		f := newFixture(t, policy, "no")

		result, _ := f.exec.HandleCommand(context.Background(), "run calc")
		assert.Contains(t, result, "won't run calc")
		assert.Empty(t, f.platform.spawned)
		assert.Len(t, f.audit.Records(), 1)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeConfirmationDenied))
	})

	t.Run("spawn failure", func(t *testing.T) {
		f := newFixture(t, policy)
		f.platform.err = errors.New("exec: not found")

		result, _ := f.exec.HandleCommand(context.Background(), "run notepad")
		assert.Contains(t, result, "couldn't start")
		records := f.audit.Records()
		require.Len(t, records, 1)
		assert.Equal(t, audit.OutcomeFailed, records[0].Outcome)
		assert.Equal(t, "exec: not found", records[0].Err)
	})
}

func TestDeleteFile(t *testing.T) {
	t.Run("refused confirmation keeps the file", func(t *testing.T) {
		f := newFixture(t, &security.AllowlistPolicy{Programs: []string{"rm"}, AllowDelete: false}, "no")
		path := writeFile(t, f.dir, "keep.txt")

		result, ok := f.exec.HandleCommand(context.Background(), "delete file "+path)
		require.True(t, ok)
		assert.Contains(t, result, "won't delete")
		assert.FileExists(t, path)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeConfirmationDenied))
		assert.Zero(t, f.audit.Count(audit.OutcomeExecuted))
		assert.Len(t, f.audit.Records(), 1)
	})

	t.Run("confirmed removes the file", func(t *testing.T) {
		f := newFixture(t, nil, "yes")
		path := writeFile(t, f.dir, "gone.txt")

		result, _ := f.exec.HandleCommand(context.Background(), "delete file "+path)
		assert.Contains(t, result, "Deleted")
		assert.NoFileExists(t, path)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeExecuteAdmin))
	})

	t.Run("allow_delete skips confirmation", func(t *testing.T) {
		f := newFixture(t, &security.AllowlistPolicy{AllowDelete: true})
		path := writeFile(t, f.dir, "gone.txt")

		f.exec.HandleCommand(context.Background(), "delete file "+path)
		assert.NoFileExists(t, path)
		assert.Empty(t, f.gate.Requests())
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeExecuted))
	})

	t.Run("directory is removed recursively", func(t *testing.T) {
		f := newFixture(t, &security.AllowlistPolicy{AllowDelete: true})
		dir := filepath.Join(f.dir, "tree")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
		writeFile(t, filepath.Join(dir, "a"), "x.txt")

		f.exec.HandleCommand(context.Background(), "delete file "+dir)
		assert.NoDirExists(t, dir)
	})

	t.Run("directory confirmation mentions recursion", func(t *testing.T) {
		f := newFixture(t, nil, "no")
		dir := filepath.Join(f.dir, "tree")
		require.NoError(t, os.Mkdir(dir, 0o755))

		f.exec.HandleCommand(context.Background(), "delete file "+dir)
		reqs := f.gate.Requests()
		require.Len(t, reqs, 1)
		assert.Contains(t, reqs[0].Reason, "whole directory")
		assert.Equal(t, "delete_file", reqs[0].Kind)
		assert.DirExists(t, dir)
	})

	t.Run("missing file fails without prompting", func(t *testing.T) {
		f := newFixture(t, nil, "yes")

		result, _ := f.exec.HandleCommand(context.Background(), "delete file "+filepath.Join(f.dir, "nope"))
		assert.Contains(t, result, "couldn't find")
		assert.Empty(t, f.gate.Requests())
		records := f.audit.Records()
		require.Len(t, records, 1)
		assert.Equal(t, audit.OutcomeFailed, records[0].Outcome)
		assert.Equal(t, "not found", records[0].Err)
	})

	t.Run("deleting a link keeps its target", func(t *testing.T) {
		f := newFixture(t, &security.AllowlistPolicy{AllowDelete: true})
		target := writeFile(t, f.dir, "target.txt")
		link := filepath.Join(f.dir, "link")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}

		f.exec.HandleCommand(context.Background(), "delete file "+link)
		assert.FileExists(t, target)
		_, err := os.Lstat(link)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestPowerOp(t *testing.T) {
	allowAll := &security.AllowlistPolicy{Programs: []string{"shutdown", "restart"}, AllowDelete: true}

	t.Run("always asks even when allowlisted", func(t *testing.T) {
		f := newFixture(t, allowAll, "no")

		result, _ := f.exec.HandleCommand(context.Background(), "shutdown")
		assert.Contains(t, result, "won't shutdown")
		assert.Len(t, f.gate.Requests(), 1)
		assert.Empty(t, f.platform.power)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeConfirmationDenied))
	})

	t.Run("confirmed schedules with grace", func(t *testing.T) {
		f := newFixture(t, allowAll, "yes")

		result, _ := f.exec.HandleCommand(context.Background(), "please restart the computer")
		assert.Equal(t, "Restarting in 10 seconds.", result)
		assert.Equal(t, []intent.PowerKind{intent.PowerRestart}, f.platform.power)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeExecuteAdmin))
	})

	t.Run("secret mode", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := &audit.Memory{}
		f.exec.gate = terminal.NewScriptedGate(terminal.GateOptions{Secret: "hunter2", Audit: rec}, "hunter", "hunter2")
		f.exec.audit = rec

		f.exec.HandleCommand(context.Background(), "shutdown")
		f.exec.HandleCommand(context.Background(), "shutdown")
		assert.Equal(t, 1, rec.Count(audit.OutcomeAdminFailed))
		assert.Equal(t, 1, rec.Count(audit.OutcomeAdminConfirmed))
		assert.Equal(t, 1, rec.Count(audit.OutcomeExecuteAdmin))
		assert.Len(t, f.platform.power, 1)
	})
}

func TestAllowedActions(t *testing.T) {
	f := newFixture(t, nil)
	file := writeFile(t, f.dir, "notes.txt")

	tests := []struct {
		utterance string
		want      string
	}{
		{"open file " + file, "Opening notes.txt."},
		{"take a screenshot", "Screenshot saved to"},
		{"type hello world", "Done typing."},
		{"open youtube", "Opening youtube."},
		{"search for go generics", "Searching for go generics."},
		{"what's the weather in Oslo", "The current temperature in Oslo is 3.5 degrees Celsius."},
		{"remind me to stretch in 30", "I will remind you to stretch in 30 seconds."},
	}

	for _, tt := range tests {
		result, ok := f.exec.HandleCommand(context.Background(), tt.utterance)
		require.True(t, ok, tt.utterance)
		assert.Contains(t, result, tt.want)
	}

	assert.Empty(t, f.gate.Requests())
	assert.Equal(t, len(tests), f.audit.Count(audit.OutcomeExecuted))
	assert.Equal(t, []string{file}, f.platform.opened)
	assert.Equal(t, []string{"hello world"}, f.platform.typed)
	assert.Equal(t, []string{"https://youtube.com", "https://www.google.com/search?q=go+generics"}, f.platform.urls)
	assert.Equal(t, []string{"stretch"}, f.reminders.texts)
	assert.Equal(t, []time.Duration{30 * time.Second}, f.reminders.delays)

	require.Len(t, f.platform.screenshots, 1)
	assert.Regexp(t, `screenshot_\d{8}_\d{6}\.png$`, f.platform.screenshots[0])
	assert.DirExists(t, filepath.Join(f.dir, "shots"))
}

func TestFailures(t *testing.T) {
	t.Run("open missing file", func(t *testing.T) {
		f := newFixture(t, nil)

		result, _ := f.exec.HandleCommand(context.Background(), "open file /definitely/not/here.txt")
		assert.Contains(t, result, "couldn't find")
		assert.Empty(t, f.platform.opened)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeFailed))
		assert.Len(t, f.audit.Records(), 1)
	})

	t.Run("unavailable capabilities", func(t *testing.T) {
		f := newFixture(t, nil)
		f.platform.err = ErrUnavailable

		result, _ := f.exec.HandleCommand(context.Background(), "screenshot")
		assert.Equal(t, "Screenshots are not available here.", result)

		result, _ = f.exec.HandleCommand(context.Background(), "type abc")
		assert.Equal(t, "Typing is not available here.", result)

		for _, r := range f.audit.Records() {
			assert.Equal(t, audit.OutcomeFailed, r.Outcome)
			assert.Equal(t, "unavailable", r.Err)
		}
	})

	t.Run("weather error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.exec.weather = fakeWeather{err: errors.New("timeout")}

		result, _ := f.exec.HandleCommand(context.Background(), "weather in Lima")
		assert.Equal(t, "Sorry, I couldn't get the weather for Lima.", result)
		assert.Equal(t, 1, f.audit.Count(audit.OutcomeFailed))
	})

	t.Run("no reminder scheduler", func(t *testing.T) {
		f := newFixture(t, nil)
		f.exec.reminders = nil

		result, _ := f.exec.HandleCommand(context.Background(), "remind me to eat in 5")
		assert.Contains(t, result, "not available")
	})
}

func TestAuditRecordPerAttempt(t *testing.T) {
	answers := []string{"yes", "no", "yes", "no", "no"}
	f := newFixture(t, nil, answers...)

	for range answers {
		f.exec.HandleCommand(context.Background(), "run calc")
	}

	records := f.audit.Records()
	gateRecords := f.audit.Count(audit.OutcomeConfirmed) + f.audit.Count(audit.OutcomeConfirmationDenied)
	assert.Equal(t, len(answers), gateRecords)
	assert.Equal(t, 2, f.audit.Count(audit.OutcomeExecuteAdmin))
	assert.Len(t, records, len(answers)+2)
	for _, r := range records {
		assert.False(t, r.Timestamp.IsZero())
		assert.True(t, r.Outcome.Valid())
	}
}

func TestNoGateRefuses(t *testing.T) {
	rec := &audit.Memory{}
	p := &fakePlatform{}
	e := NewExecutor(ExecutorOptions{Audit: rec, Platform: p})

	result, _ := e.HandleCommand(context.Background(), "run anything")
	assert.Contains(t, result, "won't run")
	assert.Empty(t, p.spawned)
	assert.Equal(t, 1, rec.Count(audit.OutcomeConfirmationDenied))
}

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "https://youtube.com", SiteURL("youtube"))
	assert.Equal(t, "https://stackoverflow.com", SiteURL("Stack Overflow"))
	assert.Equal(t, "https://go.dev", SiteURL("go.dev"))
	assert.Equal(t, "http://localhost:8080", SiteURL("http://localhost:8080"))
	assert.Equal(t, "https://www.google.com/search?q=a%26b+c", SearchURL("a&b c"))
}
