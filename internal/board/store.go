// Package board holds the ordered card and column sequences of one board.
//
// Order lives in two flat sequences. A column's cards are the card sequence
// filtered by ColumnID, so moving a card between columns is a single
// splice-out/splice-in pair. A Store has no locks; callers own it from one
// goroutine at a time.
package board

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/evanschultz/tavla/internal/domain"
)

// ErrNotFound reports that a referenced card or column id is absent.
var ErrNotFound = errors.New("not found")

// Mutation names a completed store mutation.
type Mutation string

// Mutation values passed to observers.
const (
	MutationAddCard      Mutation = "add_card"
	MutationUpdateCard   Mutation = "update_card"
	MutationMoveCard     Mutation = "move_card"
	MutationRemoveCard   Mutation = "remove_card"
	MutationRemoveCards  Mutation = "remove_cards"
	MutationAddColumn    Mutation = "add_column"
	MutationUpdateColumn Mutation = "update_column"
	MutationMoveColumn   Mutation = "move_column"
	MutationRemoveColumn Mutation = "remove_column"
	MutationLoad         Mutation = "load"
)

// Change describes one completed mutation.
type Change struct {
	Mutation Mutation
	// SubjectID is the card or column id the mutation applied to.
	SubjectID string
	// ColumnID is the destination column for card mutations.
	ColumnID string
}

// Observer is invoked after every completed mutation. It must not block.
type Observer func(*Store, Change)

// State is a detached copy of a store's sequences and counters.
type State struct {
	Columns      []domain.Column
	Cards        []domain.Card
	NextCardID   int
	NextColumnID int
}

// Store owns the flat card and column sequences of one board.
type Store struct {
	cards        []domain.Card
	columns      []domain.Column
	nextCardID   int
	nextColumnID int
	observers    []Observer
}

// New constructs an empty store.
func New() *Store {
	return &Store{}
}

// FromState constructs a store seeded with a copy of state.
func FromState(state State) *Store {
	s := New()
	s.load(state)
	return s
}

// Observe registers fn to run after each mutation.
func (s *Store) Observe(fn Observer) {
	if fn == nil {
		return
	}
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(change Change) {
	for _, fn := range s.observers {
		fn(s, change)
	}
}

// Load replaces all contents with a copy of state.
func (s *Store) Load(state State) {
	s.load(state)
	s.notify(Change{Mutation: MutationLoad})
}

func (s *Store) load(state State) {
	s.cards = slices.Clone(state.Cards)
	s.columns = slices.Clone(state.Columns)
	s.nextCardID = max(state.NextCardID, 0)
	s.nextColumnID = max(state.NextColumnID, 0)
	for _, card := range s.cards {
		s.nextCardID = max(s.nextCardID, nextAfter(card.ID, domain.CardIDPrefix))
	}
	for _, column := range s.columns {
		s.nextColumnID = max(s.nextColumnID, nextAfter(column.ID, domain.ColumnIDPrefix))
	}
}

// nextAfter returns n+1 for an id of the form prefix<n>, or 0 otherwise.
func nextAfter(id, prefix string) int {
	digits, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}

// Snapshot returns a detached copy of the current state.
func (s *Store) Snapshot() State {
	return State{
		Columns:      slices.Clone(s.columns),
		Cards:        slices.Clone(s.cards),
		NextCardID:   s.nextCardID,
		NextColumnID: s.nextColumnID,
	}
}

// Cards returns a copy of the flat card sequence.
func (s *Store) Cards() []domain.Card {
	return slices.Clone(s.cards)
}

// Columns returns a copy of the column sequence.
func (s *Store) Columns() []domain.Column {
	return slices.Clone(s.columns)
}

// CardsByColumn returns the cards whose ColumnID matches, in flat sequence order.
func (s *Store) CardsByColumn(columnID string) []domain.Card {
	out := make([]domain.Card, 0)
	for _, card := range s.cards {
		if card.ColumnID == columnID {
			out = append(out, card)
		}
	}
	return out
}

// Card returns the card with id.
func (s *Store) Card(id string) (domain.Card, bool) {
	idx := s.cardIndex(id)
	if idx < 0 {
		return domain.Card{}, false
	}
	return s.cards[idx], true
}

// Column returns the column with id.
func (s *Store) Column(id string) (domain.Column, bool) {
	idx := s.columnIndex(id)
	if idx < 0 {
		return domain.Column{}, false
	}
	return s.columns[idx], true
}

// CardColumn returns the column id that owns card id.
func (s *Store) CardColumn(cardID string) (string, bool) {
	card, ok := s.Card(cardID)
	if !ok {
		return "", false
	}
	return card.ColumnID, true
}

// AddCard appends a card to the end of the sequence and returns it.
func (s *Store) AddCard(columnID, title, description string) (domain.Card, error) {
	card, err := domain.NewCard(domain.CardInput{
		ID:          fmt.Sprintf("%s%d", domain.CardIDPrefix, s.nextCardID),
		ColumnID:    columnID,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return domain.Card{}, err
	}
	s.nextCardID++
	s.cards = append(s.cards, card)
	s.notify(Change{Mutation: MutationAddCard, SubjectID: card.ID, ColumnID: card.ColumnID})
	return card, nil
}

// AddColumn appends a column and returns it.
func (s *Store) AddColumn(title string) (domain.Column, error) {
	column, err := domain.NewColumn(fmt.Sprintf("%s%d", domain.ColumnIDPrefix, s.nextColumnID), title)
	if err != nil {
		return domain.Column{}, err
	}
	s.nextColumnID++
	s.columns = append(s.columns, column)
	s.notify(Change{Mutation: MutationAddColumn, SubjectID: column.ID})
	return column, nil
}

// UpdateCard replaces the display fields of an existing card in place.
// Column membership is changed only through MoveCard.
func (s *Store) UpdateCard(card domain.Card) {
	idx := s.cardIndex(card.ID)
	if idx < 0 {
		return
	}
	s.cards[idx].Title = card.Title
	s.cards[idx].Description = card.Description
	s.notify(Change{Mutation: MutationUpdateCard, SubjectID: card.ID, ColumnID: s.cards[idx].ColumnID})
}

// UpdateColumn replaces the title of an existing column in place.
func (s *Store) UpdateColumn(column domain.Column) {
	idx := s.columnIndex(column.ID)
	if idx < 0 {
		return
	}
	s.columns[idx].Title = column.Title
	s.notify(Change{Mutation: MutationUpdateColumn, SubjectID: column.ID})
}

// MoveCard splices the card out, reassigns it to toColumnID and reinserts it
// before beforeCardID. An empty or unknown beforeCardID appends. An unknown
// cardID leaves the store untouched.
func (s *Store) MoveCard(cardID, toColumnID, beforeCardID string) {
	_ = s.TryMoveCard(cardID, toColumnID, beforeCardID)
}

// TryMoveCard is MoveCard that reports ErrNotFound for an unknown card.
func (s *Store) TryMoveCard(cardID, toColumnID, beforeCardID string) error {
	idx := s.cardIndex(cardID)
	if idx < 0 {
		return fmt.Errorf("card %q: %w", cardID, ErrNotFound)
	}
	card := s.cards[idx]
	s.cards = slices.Delete(s.cards, idx, idx+1)
	card.ColumnID = toColumnID

	at := len(s.cards)
	if beforeCardID != "" {
		if target := s.cardIndex(beforeCardID); target >= 0 {
			at = target
		}
	}
	s.cards = slices.Insert(s.cards, at, card)
	s.notify(Change{Mutation: MutationMoveCard, SubjectID: cardID, ColumnID: toColumnID})
	return nil
}

// MoveColumn splices the column out and reinserts it before beforeColumnID.
// An empty or unknown beforeColumnID, or the column's own id, appends.
func (s *Store) MoveColumn(columnID, beforeColumnID string) {
	_ = s.TryMoveColumn(columnID, beforeColumnID)
}

// TryMoveColumn is MoveColumn that reports ErrNotFound for an unknown column.
func (s *Store) TryMoveColumn(columnID, beforeColumnID string) error {
	idx := s.columnIndex(columnID)
	if idx < 0 {
		return fmt.Errorf("column %q: %w", columnID, ErrNotFound)
	}
	column := s.columns[idx]
	s.columns = slices.Delete(s.columns, idx, idx+1)

	at := len(s.columns)
	if beforeColumnID != "" {
		if target := s.columnIndex(beforeColumnID); target >= 0 {
			at = target
		}
	}
	s.columns = slices.Insert(s.columns, at, column)
	s.notify(Change{Mutation: MutationMoveColumn, SubjectID: columnID})
	return nil
}

// RemoveCard deletes the card with id.
func (s *Store) RemoveCard(id string) {
	idx := s.cardIndex(id)
	if idx < 0 {
		return
	}
	s.cards = slices.Delete(s.cards, idx, idx+1)
	s.notify(Change{Mutation: MutationRemoveCard, SubjectID: id})
}

// RemoveCardsInColumn deletes every card owned by columnID and returns how many went.
func (s *Store) RemoveCardsInColumn(columnID string) int {
	before := len(s.cards)
	s.cards = slices.DeleteFunc(s.cards, func(card domain.Card) bool {
		return card.ColumnID == columnID
	})
	removed := before - len(s.cards)
	if removed > 0 {
		s.notify(Change{Mutation: MutationRemoveCards, SubjectID: columnID, ColumnID: columnID})
	}
	return removed
}

// RemoveColumn deletes the column with id. Its cards are left in place;
// call RemoveCardsInColumn first to drop them.
func (s *Store) RemoveColumn(id string) {
	idx := s.columnIndex(id)
	if idx < 0 {
		return
	}
	s.columns = slices.Delete(s.columns, idx, idx+1)
	s.notify(Change{Mutation: MutationRemoveColumn, SubjectID: id})
}

func (s *Store) cardIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.cards, func(card domain.Card) bool { return card.ID == id })
}

func (s *Store) columnIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.columns, func(column domain.Column) bool { return column.ID == id })
}
