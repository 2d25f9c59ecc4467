package terminal

import (
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const (
	defaultWrap = 80
	maxWrap     = 100
)

// Markdown renders chat answers for the terminal. Command replies are plain
// sentences and never pass through it.
type Markdown struct {
	tr *glamour.TermRenderer
}

// NewMarkdown sizes the renderer to out. Colors are used only when out is a
// terminal.
func NewMarkdown(out *os.File) (*Markdown, error) {
	tty := isatty.IsTerminal(out.Fd())
	return newMarkdown(wrapWidth(out, tty), tty)
}

func wrapWidth(out *os.File, tty bool) int {
	if !tty {
		return defaultWrap
	}
	w, _, err := term.GetSize(int(out.Fd()))
	if err != nil || w <= 0 {
		return defaultWrap
	}
	return min(w-4, maxWrap)
}

func newMarkdown(width int, tty bool) (*Markdown, error) {
	style := glamour.WithStandardStyle(styles.NoTTYStyle)
	if tty {
		style = glamour.WithAutoStyle()
	}

	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width), glamour.WithEmoji())
	if err != nil {
		return nil, err
	}
	return &Markdown{tr: tr}, nil
}

// Render returns the answer without glamour's blank framing lines and
// right padding. On a render error the text comes back unchanged.
func (m *Markdown) Render(text string) string {
	out, err := m.tr.Render(text)
	if err != nil {
		slog.Debug("Markdown render failed", "err", err)
		return text
	}

	lines := strings.Split(strings.Trim(out, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
