package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Rows taken by the header and footer.
const chromeHeight = 3

// =============================================================================
// Model
// =============================================================================

// Model is a read-only pager over a rendered report.
type Model struct {
	title string
	lines []string

	// offset is the index of the first visible line.
	offset int

	// Display options
	width  int
	height int

	// Quit flag
	quitting bool
}

// New creates a pager for report.
func New(title, report string) Model {
	return Model{
		title:  title,
		lines:  strings.Split(strings.TrimRight(report, "\n"), "\n"),
		width:  80,
		height: 24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	// tea.WithAltScreen() is passed when creating the program.
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m.scroll(-1)
		case "down", "j", "enter":
			m.scroll(1)
		case "pgup", "b":
			m.scroll(-m.pageSize())
		case "pgdown", " ", "f":
			m.scroll(m.pageSize())
		case "home", "g":
			m.offset = 0
		case "end", "G":
			m.offset = m.maxOffset()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll(0)
		return m, nil
	}

	return m, nil
}

// View renders the visible window of the report.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	end := m.offset + m.pageSize()
	if end > len(m.lines) {
		end = len(m.lines)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(strings.Join(m.lines[m.offset:end], "\n"))
	b.WriteString("\n")
	b.WriteString(footerStyle.Width(m.width).Render(m.footer()))
	return b.String()
}

func (m Model) footer() string {
	return fmt.Sprintf("%d-%d of %d  •  ↑/↓ scroll  pgup/pgdn page  home/end  q quit",
		m.offset+1, min(m.offset+m.pageSize(), len(m.lines)), len(m.lines))
}

// =============================================================================
// Scrolling
// =============================================================================

func (m Model) pageSize() int {
	if n := m.height - chromeHeight; n > 0 {
		return n
	}
	return 1
}

func (m Model) maxOffset() int {
	if n := len(m.lines) - m.pageSize(); n > 0 {
		return n
	}
	return 0
}

// scroll moves the window by delta lines, clamped to the report.
func (m *Model) scroll(delta int) {
	m.offset += delta
	if m.offset > m.maxOffset() {
		m.offset = m.maxOffset()
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Offset returns the index of the first visible line.
func (m Model) Offset() int {
	return m.offset
}

// Lines returns the number of report lines.
func (m Model) Lines() int {
	return len(m.lines)
}

// =============================================================================
// Program
// =============================================================================

// Run shows report in a full-screen pager until the user quits.
func Run(title, report string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(New(title, report), opts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	return nil
}
