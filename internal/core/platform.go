package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/browser"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
)

// ErrUnavailable reports that the running environment lacks a capability
// (no screenshot tool, no keystroke injector, ...).
var ErrUnavailable = errors.New("unavailable")

// ErrNotFound reports that the file a command names does not exist.
var ErrNotFound = errors.New("not found")

// Platform performs the side effects of commands.
type Platform interface {
	// Spawn starts argv[0] with the remaining arguments and returns once the
	// process has started. It never goes through a shell.
	Spawn(argv []string) error
	OpenFile(path string) error
	Screenshot(path string) error
	TypeText(text string) error
	// Power schedules a shutdown or restart after grace.
	Power(op intent.PowerKind, grace time.Duration) error
	OpenURL(url string) error
}

// FS is the part of the file system the executor touches.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	Remove(path string) error
	RemoveAll(path string) error
}

// OSFS is FS backed by package os. It does not follow a final symlink on
// Stat, so links are deleted rather than their targets.
type OSFS struct{}

func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Lstat(path) }
func (OSFS) Remove(path string) error              { return os.Remove(path) }
func (OSFS) RemoveAll(path string) error           { return os.RemoveAll(path) }

// SystemPlatform drives the local desktop with external tools.
type SystemPlatform struct {
	goos     string
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
	run      func(name string, args ...string) error

	mu         sync.Mutex
	powerTimer *time.Timer
	powerDone  chan struct{}
}

// NewSystemPlatform creates a platform for the current OS.
func NewSystemPlatform() *SystemPlatform {
	// xdg-open and friends are chatty; keep them off the REPL.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	return &SystemPlatform{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		start:    startDetached,
		run:      runQuiet,
	}
}

// Spawn starts a program without waiting for it. The child is reaped in the
// background; its exit status is only logged.
func (p *SystemPlatform) Spawn(argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return errors.New("empty command")
	}
	return p.start(argv[0], argv[1:]...)
}

func (p *SystemPlatform) OpenFile(path string) error {
	return browser.OpenFile(path)
}

func (p *SystemPlatform) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// Screenshot captures the whole screen into a PNG file at path.
func (p *SystemPlatform) Screenshot(path string) error {
	argv, err := p.screenshotCommand(path)
	if err != nil {
		return err
	}
	return p.run(argv[0], argv[1:]...)
}

func (p *SystemPlatform) screenshotCommand(path string) ([]string, error) {
	switch p.goos {
	case "darwin":
		return []string{"screencapture", "-x", path}, nil
	case "windows":
		return nil, ErrUnavailable
	}

	candidates := [][]string{
		{"grim", path},
		{"gnome-screenshot", "-f", path},
		{"scrot", "--overwrite", path},
		{"import", "-window", "root", path},
	}
	return p.firstAvailable(candidates)
}

// TypeText injects text as keystrokes into the focused window.
func (p *SystemPlatform) TypeText(text string) error {
	argv, err := p.typeCommand(text)
	if err != nil {
		return err
	}
	return p.run(argv[0], argv[1:]...)
}

func (p *SystemPlatform) typeCommand(text string) ([]string, error) {
	switch p.goos {
	case "darwin":
		script := `on run argv
tell application "System Events" to keystroke (item 1 of argv)
end run`
		return []string{"osascript", "-e", script, text}, nil
	case "windows":
		return nil, ErrUnavailable
	}

	candidates := [][]string{
		{"xdotool", "type", "--", text},
		{"wtype", "--", text},
	}
	return p.firstAvailable(candidates)
}

// Power schedules a shutdown or restart. On Windows the OS holds the grace
// period (abort with "shutdown /a"); elsewhere a timer in this process does,
// and CancelPower stops it.
func (p *SystemPlatform) Power(op intent.PowerKind, grace time.Duration) error {
	argv, err := p.powerCommand(op, grace)
	if err != nil {
		return err
	}

	if p.goos == "windows" {
		return p.run(argv[0], argv[1:]...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.powerTimer != nil {
		p.powerTimer.Stop()
	}
	done := make(chan struct{})
	p.powerDone = done
	p.powerTimer = time.AfterFunc(grace, func() {
		defer close(done)
		if err := p.run(argv[0], argv[1:]...); err != nil {
			slog.Error("Power operation failed", "op", op, "err", err)
		}
	})
	return nil
}

// WaitPower blocks while a scheduled power operation is pending. If ctx
// ends first the operation is cancelled. It reports whether the operation
// ran; with nothing pending it returns false at once.
func (p *SystemPlatform) WaitPower(ctx context.Context) bool {
	p.mu.Lock()
	done := p.powerDone
	p.mu.Unlock()

	if done == nil {
		return false
	}

	select {
	case <-done:
		return true
	case <-ctx.Done():
		p.CancelPower()
		return false
	}
}

// PowerPending reports whether a power operation scheduled by this
// process has not run yet.
func (p *SystemPlatform) PowerPending() bool {
	p.mu.Lock()
	done := p.powerDone
	p.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// CancelPower aborts a power operation scheduled by this process. It
// reports whether one was pending.
func (p *SystemPlatform) CancelPower() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.powerTimer == nil {
		return false
	}
	stopped := p.powerTimer.Stop()
	p.powerTimer = nil
	p.powerDone = nil
	return stopped
}

func (p *SystemPlatform) powerCommand(op intent.PowerKind, grace time.Duration) ([]string, error) {
	if op != intent.PowerShutdown && op != intent.PowerRestart {
		return nil, fmt.Errorf("unknown power operation %q", op)
	}

	if p.goos == "windows" {
		flag := "/s"
		if op == intent.PowerRestart {
			flag = "/r"
		}
		return []string{"shutdown", flag, "/t", fmt.Sprint(int(grace.Seconds()))}, nil
	}

	if p.goos == "linux" {
		action := "poweroff"
		if op == intent.PowerRestart {
			action = "reboot"
		}
		if argv, err := p.firstAvailable([][]string{{"systemctl", action}}); err == nil {
			return argv, nil
		}
	}

	flag := "-h"
	if op == intent.PowerRestart {
		flag = "-r"
	}
	return p.firstAvailable([][]string{{"shutdown", flag, "now"}})
}

func (p *SystemPlatform) firstAvailable(candidates [][]string) ([]string, error) {
	for _, argv := range candidates {
		if _, err := p.lookPath(argv[0]); err == nil {
			return argv, nil
		}
	}
	return nil, ErrUnavailable
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("Spawned program exited", "program", name, "err", err)
		}
	}()
	return nil
}

func runQuiet(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
