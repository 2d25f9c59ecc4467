package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
)

func sampleRecords() []audit.Record {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []audit.Record{
		{Timestamp: ts, Kind: "run_program", Subject: "notepad", Outcome: audit.OutcomeExecuted},
		{Timestamp: ts.Add(time.Second), Kind: "delete_file", Subject: "/tmp/a", Outcome: audit.OutcomeConfirmationDenied},
		{Timestamp: ts.Add(2 * time.Second), Kind: "screenshot", Subject: "screen", Outcome: audit.OutcomeFailed, Err: "no screenshot tool"},
		{Timestamp: ts.Add(3 * time.Second), Kind: "power", Subject: "shutdown", Outcome: audit.OutcomeAdminFailed},
	}
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

func TestNewModel_CursorOnNewest(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	assert.Len(t, m.visible, 4)
	assert.Equal(t, 3, m.cursor)
	assert.NotNil(t, m.Init())
}

func TestModel_Navigation(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	m, _ = update(t, m, runeKey('k'))
	assert.Equal(t, 2, m.cursor)

	m, _ = update(t, m, runeKey('j'))
	m, _ = update(t, m, runeKey('j'))
	assert.Equal(t, 3, m.cursor, "cursor stops at the last record")

	m, _ = update(t, m, runeKey('g'))
	assert.True(t, m.pendingG)
	m, _ = update(t, m, runeKey('g'))
	assert.Equal(t, 0, m.cursor)
	assert.False(t, m.pendingG)

	m, _ = update(t, m, runeKey('k'))
	assert.Equal(t, 0, m.cursor, "cursor stops at the first record")

	m, _ = update(t, m, runeKey('G'))
	assert.Equal(t, 3, m.cursor)
}

func TestModel_SingleGThenOtherKey(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	m, _ = update(t, m, runeKey('g'))
	m, _ = update(t, m, runeKey('x'))
	m, _ = update(t, m, runeKey('g'))
	assert.Equal(t, 3, m.cursor)
}

func TestModel_FilterCycle(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	tests := []struct {
		filter Filter
		count  int
	}{
		{FilterPositive, 1},
		{FilterDenials, 2},
		{FilterFailures, 1},
		{FilterAll, 4},
	}
	for _, tt := range tests {
		m, _ = update(t, m, runeKey('f'))
		assert.Equal(t, tt.filter, m.filter)
		assert.Len(t, m.visible, tt.count, tt.filter.String())
		assert.Equal(t, tt.count-1, m.cursor)
	}
}

func TestModel_Detail(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)
	m, _ = update(t, m, runeKey('k'))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.detail)
	view := m.View()
	assert.Contains(t, view, "screenshot")
	assert.Contains(t, view, "no screenshot tool")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.detail)
	assert.Nil(t, cmd, "esc leaves the detail view before quitting")
}

func TestModel_DetailOnEmptyLog(t *testing.T) {
	m := NewModel(nil, 0, nil).(model)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.detail)
	assert.Contains(t, m.View(), "No audit records")
}

func TestModel_Reload(t *testing.T) {
	calls := 0
	reload := func() ([]audit.Record, int, error) {
		calls++
		return sampleRecords()[:2], 1, nil
	}
	m := NewModel(sampleRecords(), 0, reload).(model)

	m, cmd := update(t, m, runeKey('r'))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, calls)

	m, _ = update(t, m, msg)
	assert.Len(t, m.records, 2)
	assert.Equal(t, 1, m.skipped)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.View(), "1 unreadable lines skipped")
}

func TestModel_ReloadError(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	m, _ = update(t, m, RecordsLoadedMsg{Err: errors.New("permission denied")})
	assert.Len(t, m.records, 4, "records are kept when a reload fails")
	assert.Contains(t, m.View(), "reload failed: permission denied")
}

func TestModel_ReloadWithoutFunc(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	_, cmd := update(t, m, runeKey('r'))
	assert.Nil(t, cmd)
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(sampleRecords(), 0, nil).(model)

	for _, msg := range []tea.KeyMsg{
		runeKey('q'),
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := update(t, m, msg)
		require.NotNil(t, cmd, msg.String())
		assert.Equal(t, tea.Quit(), cmd(), msg.String())
	}
}

func TestModel_ViewFitsWindow(t *testing.T) {
	records := make([]audit.Record, 0, 50)
	for i := 0; i < 50; i++ {
		records = append(records, audit.Record{
			Timestamp: time.Unix(int64(i), 0),
			Kind:      "open_url",
			Subject:   "site",
			Outcome:   audit.OutcomeExecuted,
		})
	}
	m := NewModel(records, 0, nil).(model)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})

	rows := m.pageOf()
	assert.Len(t, rows, 12)
	assert.True(t, rows[len(rows)-1].selected, "cursor row stays on screen")
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
