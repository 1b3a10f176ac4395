package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit         key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	addCard      key.Binding
	addColumn    key.Binding
	editTitle    key.Binding
	deleteCard   key.Binding
	deleteColumn key.Binding
	cardLeft     key.Binding
	cardRight    key.Binding
	columnLeft   key.Binding
	columnRight  key.Binding
	boardPicker  key.Binding
	newBoard     key.Binding
	cardInfo     key.Binding
	cancelDrag   key.Binding
	reload       key.Binding
	copyCardID   key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		addCard:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new card")),
		addColumn:    key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new column")),
		editTitle:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		deleteCard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete card")),
		deleteColumn: key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "delete column")),
		cardLeft:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "card to prev column")),
		cardRight:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "card to next column")),
		columnLeft:   key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "column left")),
		columnRight:  key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "column right")),
		boardPicker:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "boards")),
		newBoard:     key.NewBinding(key.WithKeys("B", "shift+b"), key.WithHelp("B", "new board")),
		cardInfo:     key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "card info")),
		cancelDrag:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		copyCardID:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy card id")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addCard, k.editTitle, k.cardInfo, k.boardPicker, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addCard, k.addColumn, k.editTitle, k.cardInfo, k.copyCardID, k.boardPicker, k.newBoard, k.reload, k.toggleHelp, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.cardLeft, k.cardRight, k.columnLeft, k.columnRight},
		{k.deleteCard, k.deleteColumn, k.cancelDrag},
	}
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.boardPicker, cfg.BoardPicker, "b", "boards")
	configureBinding(&k.newBoard, cfg.NewBoard, "B", "new board")
	configureBinding(&k.copyCardID, cfg.CopyCardID, "y", "copy card id")
}

// configureBinding replaces the keys and help of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys maps one configured key name into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}
