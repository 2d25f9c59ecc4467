package core

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
)

type commandLog struct {
	mu   sync.Mutex
	runs [][]string
}

func (c *commandLog) record(name string, args ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, append([]string{name}, args...))
	return nil
}

func (c *commandLog) all() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.runs...)
}

func testPlatform(goos string, tools ...string) (*SystemPlatform, *commandLog) {
	log := &commandLog{}
	have := map[string]bool{}
	for _, t := range tools {
		have[t] = true
	}

	return &SystemPlatform{
		goos: goos,
		lookPath: func(name string) (string, error) {
			if have[name] {
				return "/usr/bin/" + name, nil
			}
			return "", exec.ErrNotFound
		},
		start: log.record,
		run:   log.record,
	}, log
}

func TestSystemPlatform_Screenshot(t *testing.T) {
	tests := []struct {
		name  string
		goos  string
		tools []string
		want  []string
	}{
		{"darwin", "darwin", nil, []string{"screencapture", "-x", "/s.png"}},
		{"wayland", "linux", []string{"grim", "scrot"}, []string{"grim", "/s.png"}},
		{"gnome", "linux", []string{"gnome-screenshot"}, []string{"gnome-screenshot", "-f", "/s.png"}},
		{"imagemagick", "linux", []string{"import"}, []string{"import", "-window", "root", "/s.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, log := testPlatform(tt.goos, tt.tools...)
			require.NoError(t, p.Screenshot("/s.png"))
			assert.Equal(t, [][]string{tt.want}, log.all())
		})
	}

	t.Run("no tool", func(t *testing.T) {
		p, log := testPlatform("linux")
		assert.ErrorIs(t, p.Screenshot("/s.png"), ErrUnavailable)
		assert.Empty(t, log.all())
	})

	t.Run("windows", func(t *testing.T) {
		p, _ := testPlatform("windows")
		assert.ErrorIs(t, p.Screenshot("/s.png"), ErrUnavailable)
	})
}

func TestSystemPlatform_TypeText(t *testing.T) {
	p, log := testPlatform("linux", "wtype")
	require.NoError(t, p.TypeText("-rf $(whoami)"))
	assert.Equal(t, [][]string{{"wtype", "--", "-rf $(whoami)"}}, log.all())

	p, log = testPlatform("darwin")
	require.NoError(t, p.TypeText("hi"))
	runs := log.all()
	require.Len(t, runs, 1)
	assert.Equal(t, "osascript", runs[0][0])
	assert.Equal(t, "hi", runs[0][len(runs[0])-1])

	p, _ = testPlatform("linux")
	assert.ErrorIs(t, p.TypeText("x"), ErrUnavailable)
}

func TestSystemPlatform_Spawn(t *testing.T) {
	p, log := testPlatform("linux")
	require.NoError(t, p.Spawn([]string{"code", "--wait", "a b.txt"}))
	assert.Equal(t, [][]string{{"code", "--wait", "a b.txt"}}, log.all())

	assert.Error(t, p.Spawn(nil))
	assert.Error(t, p.Spawn([]string{""}))
}

func TestSystemPlatform_Power(t *testing.T) {
	t.Run("windows uses the OS grace period", func(t *testing.T) {
		p, log := testPlatform("windows")
		require.NoError(t, p.Power(intent.PowerRestart, PowerGrace))
		assert.Equal(t, [][]string{{"shutdown", "/r", "/t", "10"}}, log.all())
	})

	t.Run("linux fires after grace", func(t *testing.T) {
		p, log := testPlatform("linux", "systemctl")
		require.NoError(t, p.Power(intent.PowerShutdown, 20*time.Millisecond))
		assert.Empty(t, log.all())

		assert.Eventually(t, func() bool { return len(log.all()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"systemctl", "poweroff"}, log.all()[0])
	})

	t.Run("cancel before grace", func(t *testing.T) {
		p, log := testPlatform("darwin", "shutdown")
		require.NoError(t, p.Power(intent.PowerRestart, time.Hour))
		assert.True(t, p.CancelPower())
		assert.False(t, p.CancelPower())
		assert.Empty(t, log.all())
	})

	t.Run("wait runs the operation", func(t *testing.T) {
		p, log := testPlatform("linux", "systemctl")
		require.NoError(t, p.Power(intent.PowerRestart, 10*time.Millisecond))

		assert.True(t, p.WaitPower(context.Background()))
		assert.Equal(t, [][]string{{"systemctl", "reboot"}}, log.all())
	})

	t.Run("wait cancelled", func(t *testing.T) {
		p, log := testPlatform("linux", "systemctl")
		require.NoError(t, p.Power(intent.PowerShutdown, time.Hour))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, p.WaitPower(ctx))
		assert.False(t, p.CancelPower(), "cancelled wait disarms the timer")
		assert.Empty(t, log.all())
	})

	t.Run("wait with nothing pending", func(t *testing.T) {
		p, _ := testPlatform("linux", "systemctl")
		assert.False(t, p.WaitPower(context.Background()))
	})

	t.Run("pending until it runs", func(t *testing.T) {
		p, _ := testPlatform("linux", "systemctl")
		assert.False(t, p.PowerPending())

		require.NoError(t, p.Power(intent.PowerShutdown, 10*time.Millisecond))
		assert.True(t, p.PowerPending())

		require.True(t, p.WaitPower(context.Background()))
		assert.False(t, p.PowerPending())
	})

	t.Run("no tool", func(t *testing.T) {
		p, _ := testPlatform("linux")
		assert.ErrorIs(t, p.Power(intent.PowerShutdown, time.Hour), ErrUnavailable)
		assert.False(t, p.CancelPower())
	})

	t.Run("unknown op", func(t *testing.T) {
		p, _ := testPlatform("linux", "systemctl")
		err := p.Power(intent.PowerKind("hibernate"), time.Hour)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	})
}
