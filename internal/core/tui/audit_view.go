package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
)

const timeFormat = "2006-01-02 15:04:05"

// Renderer handles TUI rendering
type Renderer struct {
	style *StyleConfig
}

// StyleConfig defines visual styles
type StyleConfig struct {
	TitleColor    lipgloss.Color
	SubtleColor   lipgloss.Color
	ErrorColor    lipgloss.Color
	SuccessColor  lipgloss.Color
	WarningColor  lipgloss.Color
	SelectedColor lipgloss.Color
	BorderColor   lipgloss.Color
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	return &StyleConfig{
		TitleColor:    lipgloss.Color("10"),  // Green
		SubtleColor:   lipgloss.Color("241"), // Grey
		ErrorColor:    lipgloss.Color("9"),   // Red
		SuccessColor:  lipgloss.Color("10"),  // Green
		WarningColor:  lipgloss.Color("11"),  // Yellow
		SelectedColor: lipgloss.Color("12"),  // Blue
		BorderColor:   lipgloss.Color("8"),   // Dark grey
	}
}

// NewRenderer creates a new TUI renderer
func NewRenderer(style *StyleConfig) *Renderer {
	if style == nil {
		style = DefaultStyleConfig()
	}
	return &Renderer{style: style}
}

// RenderHeader renders the title, active filter and counts.
func (r *Renderer) RenderHeader(f Filter, shown, total int) string {
	title := lipgloss.NewStyle().
		Foreground(r.style.TitleColor).
		Bold(true).
		Render(" jarvis audit log ")

	info := lipgloss.NewStyle().
		Foreground(r.style.SubtleColor).
		Render(fmt.Sprintf("filter: %s  %d/%d", f, shown, total))

	border := lipgloss.NewStyle().
		Foreground(r.style.BorderColor).
		Render(strings.Repeat("─", 62))

	return title + "  " + info + "\n" + border + "\n"
}

// RenderRecords renders one line per row.
func (r *Renderer) RenderRecords(rows []row) string {
	if len(rows) == 0 {
		return lipgloss.NewStyle().
			Foreground(r.style.SubtleColor).
			Render("\n  No audit records\n") + "\n"
	}

	var b strings.Builder
	for _, rw := range rows {
		cursor := " "
		if rw.selected {
			cursor = lipgloss.NewStyle().Foreground(r.style.SelectedColor).Render(">")
		}

		rec := rw.record
		subject := truncate(rec.Subject, 40)
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			cursor,
			lipgloss.NewStyle().Foreground(r.style.SubtleColor).Render(rec.Timestamp.Format(timeFormat)),
			r.renderLevel(rec.Outcome),
			rec.Kind+"."+string(rec.Outcome),
			subject,
		)
	}
	return b.String()
}

// RenderDetail renders every field of one record.
func (r *Renderer) RenderDetail(rec audit.Record) string {
	label := lipgloss.NewStyle().Foreground(r.style.SubtleColor).Width(10)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(r.style.TitleColor).Bold(true).Render(" record ") + "\n\n")
	fmt.Fprintf(&b, "%s %s\n", label.Render("Time"), rec.Timestamp.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Level"), r.renderLevel(rec.Outcome))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Action"), rec.Kind)
	fmt.Fprintf(&b, "%s %s\n", label.Render("Outcome"), rec.Outcome)
	fmt.Fprintf(&b, "%s %s\n", label.Render("Subject"), rec.Subject)
	if rec.Err != "" {
		fmt.Fprintf(&b, "%s %s\n", label.Render("Error"),
			lipgloss.NewStyle().Foreground(r.style.ErrorColor).Render(rec.Err))
	}
	b.WriteString("\n" + lipgloss.NewStyle().Foreground(r.style.SubtleColor).Render("enter/esc back") + "\n")
	return b.String()
}

// RenderError renders an error line.
func (r *Renderer) RenderError(msg string) string {
	return lipgloss.NewStyle().Foreground(r.style.ErrorColor).Render("  "+msg) + "\n"
}

// RenderNote renders a subtle note line.
func (r *Renderer) RenderNote(msg string) string {
	return lipgloss.NewStyle().Foreground(r.style.SubtleColor).Render("  "+msg) + "\n"
}

// RenderFooter renders the status bar.
func (r *Renderer) RenderFooter(keys keyMap) string {
	return "\n" + statusBarStyle.Render(keys.View()) + "\n"
}

func (r *Renderer) renderLevel(o audit.Outcome) string {
	level := o.Level()
	color := r.style.SuccessColor
	switch level {
	case "WARNING":
		color = r.style.WarningColor
	case "ERROR":
		color = r.style.ErrorColor
	}
	return lipgloss.NewStyle().Foreground(color).Width(7).Render(level)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

var statusBarStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252")).
	Background(lipgloss.Color("235")).
	Padding(0, 1).
	Border(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("241"))

// Run opens the browser full screen and blocks until the user quits.
func Run(records []audit.Record, skipped int, reload ReloadFunc) error {
	p := tea.NewProgram(NewModel(records, skipped, reload), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
