package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/tavla/internal/domain"
	"github.com/sahilm/fuzzy"
)

// pickerRows caps the number of boards listed at once.
const pickerRows = 8

// boardPicker is the fuzzy board switcher.
type boardPicker struct {
	input   textinput.Model
	matches []int
	index   int
}

// newBoardPicker constructs board picker.
func newBoardPicker() boardPicker {
	return boardPicker{input: newModalInput("filter: ", "key or name", "", 120)}
}

// filter recomputes matches against boards. An empty query keeps list order.
func (p *boardPicker) filter(boards []domain.Board) {
	query := strings.TrimSpace(p.input.Value())
	p.matches = nil
	if query == "" {
		for idx := range boards {
			p.matches = append(p.matches, idx)
		}
	} else {
		sources := make([]string, len(boards))
		for idx, b := range boards {
			sources[idx] = b.Key + " " + b.Name
		}
		for _, match := range fuzzy.Find(query, sources) {
			p.matches = append(p.matches, match.Index)
		}
	}
	p.index = clamp(p.index, 0, len(p.matches)-1)
}

// move shifts the highlighted match.
func (p *boardPicker) move(delta int) {
	p.index = clamp(p.index+delta, 0, len(p.matches)-1)
}

// selected returns the highlighted board.
func (p boardPicker) selected(boards []domain.Board) (domain.Board, bool) {
	if p.index < 0 || p.index >= len(p.matches) {
		return domain.Board{}, false
	}
	idx := p.matches[p.index]
	if idx < 0 || idx >= len(boards) {
		return domain.Board{}, false
	}
	return boards[idx], true
}

// view renders the picker body.
func (p boardPicker) view(boards []domain.Board, currentKey string, titleStyle, hint lipgloss.Style) string {
	lines := []string{titleStyle.Render("Boards"), p.input.View(), ""}
	if len(p.matches) == 0 {
		lines = append(lines, hint.Render("no matching boards"))
	}
	start := 0
	if p.index >= pickerRows {
		start = p.index - pickerRows + 1
	}
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	for row := start; row < len(p.matches) && row < start+pickerRows; row++ {
		b := boards[p.matches[row]]
		marker := "  "
		if b.Key == currentKey {
			marker = "• "
		}
		line := marker + b.Key
		if b.Name != b.Key {
			line += "  " + b.Name
		}
		if row == p.index {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", hint.Render(fmt.Sprintf("%d/%d  •  ↑/↓ move  •  enter open  •  esc close", len(p.matches), len(boards))))
	return strings.Join(lines, "\n")
}

// openBoardPicker opens the board switcher with an empty filter.
func (m *Model) openBoardPicker() tea.Cmd {
	m.mode = modeBoardPicker
	m.picker = newBoardPicker()
	m.picker.filter(m.boards)
	for row, idx := range m.picker.matches {
		if m.boards[idx].Key == m.current.Key {
			m.picker.index = row
		}
	}
	m.status = "boards"
	return m.picker.input.Focus()
}

// handleBoardPickerKey handles keys while the board switcher is open.
func (m Model) handleBoardPickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.picker.input.Blur()
		m.status = "ready"
		return m, nil
	case "up", "ctrl+p":
		m.picker.move(-1)
		return m, nil
	case "down", "ctrl+n":
		m.picker.move(1)
		return m, nil
	case "enter":
		b, ok := m.picker.selected(m.boards)
		m.mode = modeNone
		m.picker.input.Blur()
		if !ok {
			m.status = "no board selected"
			return m, nil
		}
		if b.Key == m.current.Key {
			m.status = "ready"
			return m, nil
		}
		m.status = "opening " + b.Key + "..."
		return m, m.loadBoard(b.Key)
	}
	var cmd tea.Cmd
	m.picker.input, cmd = m.picker.input.Update(msg)
	m.picker.filter(m.boards)
	return m, cmd
}
