package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
)

// model is the Bubble Tea model for the audit log browser
type model struct {
	records  []audit.Record
	visible  []int
	skipped  int
	loadErr  error
	filter   Filter
	cursor   int
	detail   bool
	keys     keyMap
	reload   ReloadFunc
	pendingG bool // Tracks if 'g' was pressed for 'gg' command
	width    int
	height   int
	renderer *Renderer
}

// NewModel creates a browser over records. reload may be nil, in which case
// 'r' does nothing.
func NewModel(records []audit.Record, skipped int, reload ReloadFunc) Model {
	m := model{
		records:  records,
		skipped:  skipped,
		keys:     defaultKeyMap(),
		reload:   reload,
		renderer: NewRenderer(DefaultStyleConfig()),
	}
	m.applyFilter()
	// Newest entries are at the end of the log.
	m.cursor = max(len(m.visible)-1, 0)
	return m
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case RecordsLoadedMsg:
		if msg.Err != nil {
			m.loadErr = msg.Err
			return m, nil
		}
		m.loadErr = nil
		m.records = msg.Records
		m.skipped = msg.Skipped
		m.applyFilter()
		m.cursor = max(len(m.visible)-1, 0)
		return m, nil
	}

	return m, nil
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "q" || msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if msg.Type == tea.KeyEsc {
		if m.detail {
			m.detail = false
			return m, nil
		}
		return m, tea.Quit
	}

	if msg.Type == tea.KeyEnter {
		if len(m.visible) > 0 {
			m.detail = !m.detail
		}
		return m, nil
	}

	switch msg.String() {
	case "k", "up":
		m.pendingG = false
		if m.cursor > 0 {
			m.cursor--
		}
	case "j", "down":
		m.pendingG = false
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "g":
		if m.pendingG {
			m.cursor = 0
			m.pendingG = false
		} else {
			m.pendingG = true
		}
	case "G":
		m.pendingG = false
		m.cursor = max(len(m.visible)-1, 0)
	case "f":
		m.pendingG = false
		m.filter = m.filter.next()
		m.detail = false
		m.applyFilter()
		m.cursor = max(len(m.visible)-1, 0)
	case "r":
		m.pendingG = false
		if m.reload != nil {
			return m, m.reloadCmd()
		}
	default:
		m.pendingG = false
	}

	return m, nil
}

func (m model) reloadCmd() tea.Cmd {
	reload := m.reload
	return func() tea.Msg {
		records, skipped, err := reload()
		return RecordsLoadedMsg{Records: records, Skipped: skipped, Err: err}
	}
}

func (m *model) applyFilter() {
	m.visible = nil
	for i, r := range m.records {
		if m.filter.match(r) {
			m.visible = append(m.visible, i)
		}
	}
}

// selected returns the record under the cursor.
func (m model) selected() (audit.Record, bool) {
	if len(m.visible) == 0 || m.cursor >= len(m.visible) {
		return audit.Record{}, false
	}
	return m.records[m.visible[m.cursor]], true
}

// View renders the UI
func (m model) View() string {
	if m.detail {
		if rec, ok := m.selected(); ok {
			return m.renderer.RenderDetail(rec)
		}
	}

	header := m.renderer.RenderHeader(m.filter, len(m.visible), len(m.records))
	content := m.renderer.RenderRecords(m.pageOf())
	if m.loadErr != nil {
		content += m.renderer.RenderError(fmt.Sprintf("reload failed: %v", m.loadErr))
	}
	if m.skipped > 0 {
		content += m.renderer.RenderNote(fmt.Sprintf("%d unreadable lines skipped", m.skipped))
	}
	footer := m.renderer.RenderFooter(m.keys)

	// Push footer to the bottom of the window
	if m.height > 0 {
		padding := m.height - countLines(header) - countLines(content) - countLines(footer)
		for i := 0; i < padding; i++ {
			content += "\n"
		}
	}

	return header + content + footer
}

// row is one rendered list entry.
type row struct {
	record   audit.Record
	selected bool
}

// pageOf returns the rows that fit the window, keeping the cursor visible.
func (m model) pageOf() []row {
	size := len(m.visible)
	if m.height > 0 {
		// header, footer and notes take roughly eight lines
		size = max(m.height-8, 1)
	}

	start := 0
	if m.cursor >= size {
		start = m.cursor - size + 1
	}
	end := min(start+size, len(m.visible))

	rows := make([]row, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, row{record: m.records[m.visible[i]], selected: i == m.cursor})
	}
	return rows
}

// countLines counts the number of lines in a string
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := 0
	for _, ch := range s {
		if ch == '\n' {
			count++
		}
	}
	// If string doesn't end with newline, count the last line
	if s[len(s)-1] != '\n' {
		count++
	}
	return count
}
