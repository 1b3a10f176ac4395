package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/tavla/internal/dnd"
	"github.com/evanschultz/tavla/internal/domain"
)

// boardTopRow is the screen row of the column top borders.
const boardTopRow = 2

// columnSlot records where one rendered column landed on screen.
type columnSlot struct {
	columnID string
	x0, x1   int
	// rows maps content rows to card ids. Row 0 is the column title.
	rows []string
}

// boardLayout is the hit-test map of the last rendered board.
type boardLayout struct {
	top    int
	height int
	slots  []columnSlot
	// endX is where the board-end drop zone starts. It is only set while
	// the last column is on screen.
	endX   int
	hasEnd bool
}

// boardHit is one resolved screen position.
type boardHit struct {
	columnID string
	cardID   string
	header   bool
	// end reports a hit past the last column.
	end bool
}

// hitTest resolves a screen cell to the column and card under it.
func (l boardLayout) hitTest(x, y int) (boardHit, bool) {
	if y < l.top || y >= l.top+l.height {
		return boardHit{}, false
	}
	for _, slot := range l.slots {
		if x < slot.x0 || x >= slot.x1 {
			continue
		}
		hit := boardHit{columnID: slot.columnID}
		row := y - l.top - 1
		switch {
		case row == 0:
			hit.header = true
		case row > 0 && row < len(slot.rows):
			hit.cardID = slot.rows[row]
		}
		return hit, true
	}
	if l.hasEnd && x >= l.endX {
		return boardHit{end: true}, true
	}
	return boardHit{}, false
}

// View renders the full screen.
func (m Model) View() tea.View {
	if m.err != nil {
		return newScreen("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
	}
	if !m.ready || m.store == nil {
		return newScreen("loading...")
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("tavla") + "  " + m.current.Name
	if m.current.Name != m.current.Key {
		header += statusStyle.Render("  (" + m.current.Key + ")")
	}
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if drag := m.dnd.State().Session(); drag != nil {
		header += lipgloss.NewStyle().Foreground(lipgloss.Color(m.runtime.DragColor)).Render("  dragging " + drag.SubjectID())
	}

	boardView, _ := m.renderBoard()
	if len(m.store.Columns()) == 0 {
		boardView = lipgloss.NewStyle().Foreground(muted).Render("No columns yet. Press N to add one.")
	}

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	footer := statusStyle.Render(m.status) + "\n" + lipgloss.NewStyle().Foreground(muted).Render(helpBubble.View(m.keys))

	content := header + "\n\n" + boardView
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(footer)))
	}
	full := content + "\n" + footer
	if overlay := m.renderOverlay(accent, muted, dim, m.width-8); overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, height))
	}
	return newScreen(full)
}

// newScreen wraps content in the alt-screen view with cell-motion mouse reporting.
func newScreen(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// modeLabel returns the header label for the current mode.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddCard:
		return "add card"
	case modeAddColumn:
		return "add column"
	case modeEditCard:
		return "edit card"
	case modeEditColumn:
		return "edit column"
	case modeAddBoard:
		return "new board"
	case modeBoardPicker:
		return "boards"
	case modeCardInfo:
		return "card"
	}
	switch m.dnd.State().Phase() {
	case dnd.PhaseCardDragging:
		return "drag card"
	case dnd.PhaseColumnDragging:
		return "drag column"
	}
	return "board"
}

// innerHeight returns the number of content rows available inside a column.
func (m Model) innerHeight() int {
	if m.height <= 0 {
		return 0
	}
	// header, blank, two border rows, status and help.
	return max(3, m.height-boardTopRow-2-2)
}

// visibleColumns returns the first column index shown so the selection stays on screen.
func (m Model) visibleColumns(count, slotWidth int) int {
	if m.width <= 0 || slotWidth <= 0 {
		return 0
	}
	fit := max(1, (m.width+1)/(slotWidth+1))
	if m.selectedColumn < fit {
		return 0
	}
	return min(count-1, m.selectedColumn-fit+1)
}

// renderBoard renders the visible columns and the layout used for mouse hit testing.
func (m Model) renderBoard() (string, boardLayout) {
	layout := boardLayout{top: boardTopRow}
	if m.store == nil {
		return "", layout
	}
	columns := m.store.Columns()
	if len(columns) == 0 {
		return "", layout
	}

	colWidth := m.runtime.ColumnWidth
	textWidth := max(4, colWidth-6)
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	highlight := lipgloss.Color(m.runtime.HighlightColor)
	dragColor := lipgloss.Color(m.runtime.DragColor)

	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(colWidth)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	cardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	hoverCardStyle := lipgloss.NewStyle().Foreground(highlight).Bold(true).Underline(true)
	liftedCardStyle := lipgloss.NewStyle().Foreground(dragColor).Faint(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)

	type renderedColumn struct {
		id    string
		lines []string
		rows  []string
		style lipgloss.Style
	}
	rendered := make([]renderedColumn, 0, len(columns))
	tallest := 0
	for colIdx, column := range columns {
		ctl := dnd.NewColumnController(m.dnd, column.ID)
		flags := ctl.Highlights()
		cards := m.store.CardsByColumn(column.ID)

		style := baseColStyle
		switch {
		case flags.Lifted:
			style = style.BorderForeground(dragColor)
		case flags.Hovering || flags.HoveringColumn:
			style = style.BorderForeground(highlight)
		case colIdx == m.selectedColumn:
			style = style.BorderForeground(accent)
		}

		lines := []string{colTitle.Render(truncate(fmt.Sprintf("%s (%d)", column.Title, len(cards)), textWidth+2)), ""}
		rows := []string{"", ""}
		if len(cards) == 0 {
			lines = append(lines, subStyle.Render("(empty)"))
			rows = append(rows, "")
		}
		for cardIdx, card := range cards {
			cardFlags := dnd.NewCardController(m.dnd, card.ID, column.ID).Highlights()
			selected := colIdx == m.selectedColumn && cardIdx == m.selectedCard
			prefix := "  "
			if selected {
				prefix = "│ "
			}
			title := prefix + truncate(card.Title, textWidth)
			switch {
			case cardFlags.Lifted || cardFlags.Dragging:
				title = liftedCardStyle.Render(title)
			case cardFlags.Hovering:
				title = hoverCardStyle.Render(title)
			case selected:
				title = selectedCardStyle.Render(title)
			default:
				title = cardStyle.Render(title)
			}
			lines = append(lines, title)
			rows = append(rows, card.ID)
			if m.runtime.ShowDescriptions {
				if desc := strings.TrimSpace(card.Description); desc != "" {
					lines = append(lines, subStyle.Render("  "+truncate(firstLine(desc), textWidth)))
					rows = append(rows, card.ID)
				}
			}
			lines = append(lines, "")
			rows = append(rows, "")
		}
		tallest = max(tallest, len(lines))
		rendered = append(rendered, renderedColumn{id: column.ID, lines: lines, rows: rows, style: style})
	}

	height := m.innerHeight()
	if height <= 0 {
		height = tallest
	}
	layout.height = height + 2

	views := make([]string, 0, len(rendered))
	x := 0
	first := -1
	for idx, col := range rendered {
		if first < 0 {
			probe := col.style.Render(fitLines(strings.Join(col.lines, "\n"), height))
			first = m.visibleColumns(len(rendered), lipgloss.Width(probe))
		}
		if idx < first {
			continue
		}
		rows := col.rows
		if len(col.lines) > height {
			rows = append([]string(nil), rows[:height]...)
			rows[height-1] = ""
		}
		view := col.style.Render(fitLines(strings.Join(col.lines, "\n"), height))
		w := lipgloss.Width(view)
		if m.width > 0 && x > 0 && x+w > m.width {
			break
		}
		layout.slots = append(layout.slots, columnSlot{columnID: col.id, x0: x, x1: x + w, rows: rows})
		if len(views) > 0 {
			views = append(views, " ")
		}
		views = append(views, view)
		x += w + 1
		if idx == len(rendered)-1 {
			layout.endX = x - 1
			layout.hasEnd = true
		}
	}
	if _, ok := m.dnd.State().ColumnSession(); ok && layout.hasEnd {
		zone := dim
		if m.drag.overBoardEnd() {
			zone = highlight
		}
		marker := strings.TrimSuffix(strings.Repeat("┆\n", height+2), "\n")
		views = append(views, " ", lipgloss.NewStyle().Foreground(zone).Render(marker))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...), layout
}

// renderOverlay renders the active modal, if any.
func (m Model) renderOverlay(accent, muted, dim color.Color, maxWidth int) string {
	if m.help.ShowAll {
		return m.renderHelpOverlay(accent, muted, dim, maxWidth)
	}
	width := clamp(maxWidth, 40, 72)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(width)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hint := lipgloss.NewStyle().Foreground(muted)

	switch m.mode {
	case modeAddCard, modeEditCard, modeAddColumn, modeEditColumn, modeAddBoard:
		lines := []string{titleStyle.Render(m.modeLabel()), "", m.input.View(), ""}
		switch m.mode {
		case modeAddCard, modeEditCard:
			lines = append(lines, hint.Render("title | description  •  enter save  •  esc cancel"))
		default:
			lines = append(lines, hint.Render("enter save  •  esc cancel"))
		}
		return box.Render(strings.Join(lines, "\n"))
	case modeBoardPicker:
		return box.Render(m.picker.view(m.boards, m.current.Key, titleStyle, hint))
	case modeCardInfo:
		return box.Render(m.renderCardInfo(width-4, titleStyle, hint))
	}
	return ""
}

// renderCardInfo renders the selected card through the markdown renderer.
func (m Model) renderCardInfo(width int, titleStyle, hint lipgloss.Style) string {
	card, ok := m.store.Card(m.infoCardID)
	if !ok {
		return hint.Render("card no longer exists")
	}
	columnTitle := card.ColumnID
	if column, ok := m.store.Column(card.ColumnID); ok {
		columnTitle = column.Title
	}
	lines := []string{
		titleStyle.Render(card.Title),
		hint.Render(card.ID + " in " + columnTitle),
		"",
	}
	if body := m.markdown.render(cardMarkdown(card), width); body != "" {
		lines = append(lines, body, "")
	} else {
		lines = append(lines, hint.Render("(no description)"), "")
	}
	lines = append(lines, hint.Render("esc close"))
	return strings.Join(lines, "\n")
}

// cardMarkdown returns the markdown body shown for a card.
func cardMarkdown(card domain.Card) string {
	return strings.TrimSpace(card.Description)
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("tavla help")
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Dragging"),
		"1. press on a card and move to drag it onto another card or column",
		"2. press on a column title and move to reorder columns",
		"3. release to drop  •  esc cancels an active drag",
		"4. [ ] move a card across columns  •  < > reorder columns",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(muted).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(muted).Render("press ? or esc to close"),
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// firstLine returns the first line of s.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
