package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
)

// RecordsLoadedMsg carries a fresh read of the audit log.
type RecordsLoadedMsg struct {
	Records []audit.Record
	Skipped int
	Err     error
}

// ReloadFunc reads the audit log again.
type ReloadFunc func() ([]audit.Record, int, error)

// Filter narrows the records shown.
type Filter int

const (
	FilterAll Filter = iota
	FilterPositive
	FilterDenials
	FilterFailures
)

func (f Filter) String() string {
	switch f {
	case FilterPositive:
		return "allowed"
	case FilterDenials:
		return "denied"
	case FilterFailures:
		return "failed"
	default:
		return "all"
	}
}

func (f Filter) next() Filter {
	return (f + 1) % 4
}

func (f Filter) match(r audit.Record) bool {
	switch f {
	case FilterPositive:
		return r.Outcome.Level() == "INFO"
	case FilterDenials:
		return r.Outcome.Level() == "WARNING"
	case FilterFailures:
		return r.Outcome.Level() == "ERROR"
	default:
		return true
	}
}

// Model is the interface for the TUI model
type Model interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
