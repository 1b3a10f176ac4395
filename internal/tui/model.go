package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/dnd"
	"github.com/evanschultz/tavla/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	ListBoards(context.Context) ([]domain.Board, error)
	EnsureCurrentBoard(context.Context) (domain.Board, error)
	SelectBoard(context.Context, string) (domain.Board, error)
	CreateBoard(context.Context, string, string) (domain.Board, error)
	OpenBoard(context.Context, string) (*board.Store, error)
	Flush(context.Context) error
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddCard
	modeAddColumn
	modeEditCard
	modeEditColumn
	modeAddBoard
	modeBoardPicker
	modeCardInfo
)

// Model is the bubbletea model for one open board.
type Model struct {
	svc    Service
	logger *log.Logger

	ready  bool
	width  int
	height int
	err    error
	status string

	help    help.Model
	keys    keyMap
	runtime RuntimeConfig

	boards  []domain.Board
	current domain.Board
	store   *board.Store
	dnd     *dnd.Context
	queue   *dnd.Queue

	selectedColumn int
	selectedCard   int

	mode       inputMode
	input      textinput.Model
	editTarget string
	picker     boardPicker
	infoCardID string
	markdown   *markdownRenderer

	drag           dragTracker
	writeClipboard func(string) error
}

// boardLoadedMsg carries one opened board and the board list.
type boardLoadedMsg struct {
	boards  []domain.Board
	current domain.Board
	store   *board.Store
	status  string
	err     error
}

// statusMsg carries a non-fatal status line update.
type statusMsg struct {
	text string
}

// flushDragMsg drains deferred drag-end work after an event dispatch.
type flushDragMsg struct{}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	queue := &dnd.Queue{}
	m := Model{
		svc:      svc,
		logger:   log.New(io.Discard),
		status:   "loading...",
		help:     h,
		keys:     newKeyMap(),
		queue:    queue,
		dnd:      dnd.NewContext(nil, queue),
		markdown: &markdownRenderer{},
		picker:   newBoardPicker(),
	}
	m.applyRuntimeConfig(DefaultRuntimeConfig())
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadBoard("")
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.boards = msg.boards
		m.current = msg.current
		m.store = msg.store
		m.dnd.Rebind(msg.store)
		m.drag = dragTracker{}
		m.selectedColumn = 0
		m.selectedCard = 0
		m.status = "ready"
		if msg.status != "" {
			m.status = msg.status
		}
		m.logger.Debug("board opened", "board", m.current.Key, "columns", len(m.store.Columns()), "cards", len(m.store.Cards()))
		return m, nil

	case statusMsg:
		m.status = msg.text
		return m, nil

	case flushDragMsg:
		if ran := m.queue.Flush(); ran > 0 {
			m.logger.Debug("drag cleanup", "ran", ran, "phase", m.dnd.State().Phase())
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMousePress(msg.X, msg.Y, msg.Button)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg.X, msg.Y)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg.X, msg.Y)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// loadBoard opens key, or the current board when key is empty.
func (m Model) loadBoard(key string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return openBoard(svc, key, "")
	}
}

// openBoard flushes pending saves, then opens one board for editing.
func openBoard(svc Service, key, status string) boardLoadedMsg {
	ctx := context.Background()
	if err := svc.Flush(ctx); err != nil {
		return boardLoadedMsg{err: err}
	}
	var (
		current domain.Board
		err     error
	)
	if strings.TrimSpace(key) == "" {
		current, err = svc.EnsureCurrentBoard(ctx)
	} else {
		current, err = svc.SelectBoard(ctx, key)
	}
	if err != nil {
		return boardLoadedMsg{err: err}
	}
	store, err := svc.OpenBoard(ctx, current.Key)
	if err != nil {
		return boardLoadedMsg{err: err}
	}
	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return boardLoadedMsg{err: err}
	}
	return boardLoadedMsg{boards: boards, current: current, store: store, status: status}
}

// createBoard creates and opens one board.
func (m Model) createBoard(key string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		b, err := svc.CreateBoard(context.Background(), key, "")
		if err != nil {
			return statusMsg{text: "create board failed: " + err.Error()}
		}
		return openBoard(svc, b.Key, "created board "+b.Key)
	}
}

// flushDrag schedules one deferred-work drain.
func flushDrag() tea.Msg {
	return flushDragMsg{}
}

// handleNormalModeKey handles board navigation and mutation keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case key.Matches(msg, m.keys.cancelDrag):
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		return m.cancelDrag()
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadBoard(m.current.Key)
	}
	if m.store == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.store.Columns())-1 {
			m.selectedColumn++
			m.selectedCard = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedCard > 0 {
			m.selectedCard--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selectedCard < len(m.currentCards())-1 {
			m.selectedCard++
		}
		return m, nil
	case key.Matches(msg, m.keys.addCard):
		if _, ok := m.currentColumn(); !ok {
			m.status = "add a column first"
			return m, nil
		}
		cmd := m.startInput(modeAddCard, "new card: ", "title | description", "", "")
		return m, cmd
	case key.Matches(msg, m.keys.addColumn):
		cmd := m.startInput(modeAddColumn, "new column: ", "title", "", "")
		return m, cmd
	case key.Matches(msg, m.keys.editTitle):
		if card, ok := m.selectedCardValue(); ok {
			cmd := m.startInput(modeEditCard, "edit card: ", "title | description", formatCardEditInput(card), card.ID)
			return m, cmd
		}
		if column, ok := m.currentColumn(); ok {
			cmd := m.startInput(modeEditColumn, "edit column: ", "title", column.Title, column.ID)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.deleteCard):
		card, ok := m.selectedCardValue()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.dnd.RemoveCard(card.ID)
		m.clampSelections()
		m.status = "deleted " + card.ID
		return m, nil
	case key.Matches(msg, m.keys.deleteColumn):
		column, ok := m.currentColumn()
		if !ok {
			return m, nil
		}
		m.dnd.RemoveColumnCascade(column.ID)
		m.clampSelections()
		m.status = "deleted column " + column.Title
		return m, nil
	case key.Matches(msg, m.keys.cardLeft):
		return m.moveSelectedCard(-1)
	case key.Matches(msg, m.keys.cardRight):
		return m.moveSelectedCard(1)
	case key.Matches(msg, m.keys.columnLeft):
		return m.moveSelectedColumn(-1)
	case key.Matches(msg, m.keys.columnRight):
		return m.moveSelectedColumn(1)
	case key.Matches(msg, m.keys.boardPicker):
		cmd := m.openBoardPicker()
		return m, cmd
	case key.Matches(msg, m.keys.newBoard):
		cmd := m.startInput(modeAddBoard, "new board: ", "key (empty generates one)", "", "")
		return m, cmd
	case key.Matches(msg, m.keys.cardInfo):
		card, ok := m.selectedCardValue()
		if !ok {
			return m, nil
		}
		m.mode = modeCardInfo
		m.infoCardID = card.ID
		m.status = "card info"
		return m, nil
	case key.Matches(msg, m.keys.copyCardID):
		card, ok := m.selectedCardValue()
		if !ok {
			return m, nil
		}
		if err := m.clipboardWriter()(card.ID); err != nil {
			m.logger.Warn("clipboard write failed", "err", err)
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + card.ID
		return m, nil
	}
	return m, nil
}

// handleInputModeKey handles keys while a modal is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCardInfo:
		switch {
		case msg.String() == "esc", key.Matches(msg, m.keys.cardInfo), key.Matches(msg, m.keys.quit):
			m.mode = modeNone
			m.infoCardID = ""
			m.status = "ready"
		}
		return m, nil
	case modeBoardPicker:
		return m.handleBoardPickerKey(msg)
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.editTarget = ""
		m.input.Blur()
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.submitInputMode()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startInput opens one single-line modal input.
func (m *Model) startInput(mode inputMode, prompt, placeholder, value, target string) tea.Cmd {
	m.mode = mode
	m.editTarget = target
	m.input = newModalInput(prompt, placeholder, value, 240)
	m.status = strings.TrimSuffix(strings.TrimSpace(prompt), ":")
	return m.input.Focus()
}

// submitInputMode applies the open modal input.
func (m Model) submitInputMode() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	mode := m.mode
	target := m.editTarget
	m.mode = modeNone
	m.editTarget = ""
	m.input.Blur()

	switch mode {
	case modeAddCard:
		column, ok := m.currentColumn()
		if !ok {
			return m, nil
		}
		title, description := parseCardInput(raw)
		card, err := m.store.AddCard(column.ID, title, description)
		if err != nil {
			m.status = "add card failed: " + err.Error()
			return m, nil
		}
		m.focusCard(card.ID)
		m.status = "added " + card.ID
	case modeAddColumn:
		column, err := m.store.AddColumn(raw)
		if err != nil {
			m.status = "add column failed: " + err.Error()
			return m, nil
		}
		m.focusColumn(column.ID)
		m.status = "added column " + column.Title
	case modeEditCard:
		card, ok := m.store.Card(target)
		if !ok {
			m.status = "card no longer exists"
			return m, nil
		}
		title, description := parseCardEditInput(raw, card)
		if err := card.UpdateDetails(title, description); err != nil {
			m.status = "edit card failed: " + err.Error()
			return m, nil
		}
		m.store.UpdateCard(card)
		m.status = "updated " + card.ID
	case modeEditColumn:
		column, ok := m.store.Column(target)
		if !ok {
			m.status = "column no longer exists"
			return m, nil
		}
		if err := column.Rename(raw); err != nil {
			m.status = "rename column failed: " + err.Error()
			return m, nil
		}
		m.store.UpdateColumn(column)
		m.status = "renamed column " + column.Title
	case modeAddBoard:
		m.status = "creating board..."
		return m, m.createBoard(raw)
	}
	return m, nil
}

// moveSelectedCard moves the selected card to the end of a neighbouring column.
func (m Model) moveSelectedCard(delta int) (tea.Model, tea.Cmd) {
	card, ok := m.selectedCardValue()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	columns := m.store.Columns()
	target := m.selectedColumn + delta
	if target < 0 || target >= len(columns) {
		return m, nil
	}
	m.store.MoveCard(card.ID, columns[target].ID, "")
	m.focusCard(card.ID)
	m.status = fmt.Sprintf("moved %s to %s", card.ID, columns[target].Title)
	return m, nil
}

// moveSelectedColumn shifts the selected column one slot.
func (m Model) moveSelectedColumn(delta int) (tea.Model, tea.Cmd) {
	column, ok := m.currentColumn()
	if !ok {
		return m, nil
	}
	columns := m.store.Columns()
	idx := m.selectedColumn
	switch {
	case delta < 0 && idx > 0:
		m.store.MoveColumn(column.ID, columns[idx-1].ID)
	case delta > 0 && idx+2 < len(columns):
		m.store.MoveColumn(column.ID, columns[idx+2].ID)
	case delta > 0 && idx+1 < len(columns):
		m.store.MoveColumn(column.ID, "")
	default:
		return m, nil
	}
	m.focusColumn(column.ID)
	m.status = "moved column " + column.Title
	return m, nil
}

// handleMouseWheel moves the card selection inside the selected column.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeBoardPicker {
		switch msg.Button {
		case tea.MouseWheelUp:
			m.picker.move(-1)
		case tea.MouseWheelDown:
			m.picker.move(1)
		}
		return m, nil
	}
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedCard > 0 {
			m.selectedCard--
		}
	case tea.MouseWheelDown:
		if m.selectedCard < len(m.currentCards())-1 {
			m.selectedCard++
		}
	}
	return m, nil
}

// clipboardWriter returns the configured clipboard sink.
func (m Model) clipboardWriter() func(string) error {
	if m.writeClipboard != nil {
		return m.writeClipboard
	}
	return clipboard.WriteAll
}

// currentColumn returns the selected column.
func (m Model) currentColumn() (domain.Column, bool) {
	if m.store == nil {
		return domain.Column{}, false
	}
	columns := m.store.Columns()
	if m.selectedColumn < 0 || m.selectedColumn >= len(columns) {
		return domain.Column{}, false
	}
	return columns[m.selectedColumn], true
}

// currentCards returns the cards of the selected column in order.
func (m Model) currentCards() []domain.Card {
	column, ok := m.currentColumn()
	if !ok {
		return nil
	}
	return m.store.CardsByColumn(column.ID)
}

// selectedCardValue returns the selected card.
func (m Model) selectedCardValue() (domain.Card, bool) {
	cards := m.currentCards()
	if m.selectedCard < 0 || m.selectedCard >= len(cards) {
		return domain.Card{}, false
	}
	return cards[m.selectedCard], true
}

// focusCard selects the card with id wherever it now lives.
func (m *Model) focusCard(id string) {
	if m.store == nil {
		return
	}
	columnID, ok := m.store.CardColumn(id)
	if !ok {
		m.clampSelections()
		return
	}
	m.focusColumn(columnID)
	for idx, card := range m.store.CardsByColumn(columnID) {
		if card.ID == id {
			m.selectedCard = idx
			return
		}
	}
}

// focusColumn selects the column with id.
func (m *Model) focusColumn(id string) {
	if m.store == nil {
		return
	}
	for idx, column := range m.store.Columns() {
		if column.ID == id {
			if m.selectedColumn != idx {
				m.selectedCard = 0
			}
			m.selectedColumn = idx
			return
		}
	}
	m.clampSelections()
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if m.store == nil {
		m.selectedColumn, m.selectedCard = 0, 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.store.Columns())-1)
	m.selectedCard = clamp(m.selectedCard, 0, len(m.currentCards())-1)
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// parseCardInput splits "title | description" input.
func parseCardInput(raw string) (string, string) {
	title, description, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(title), strings.TrimSpace(description)
}

// formatCardEditInput renders one card as editable "title | description" text.
func formatCardEditInput(card domain.Card) string {
	if card.Description == "" {
		return card.Title
	}
	return card.Title + " | " + card.Description
}

// parseCardEditInput parses edit input. A blank title keeps the current one;
// a "-" description clears it.
func parseCardEditInput(raw string, current domain.Card) (string, string) {
	title, description := parseCardInput(raw)
	if title == "" {
		title = current.Title
	}
	switch {
	case description == "-":
		description = ""
	case !strings.Contains(raw, "|"):
		description = current.Description
	}
	return title, description
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
