package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "tavla.snapshot.v1"

// Snapshot represents a portable export of boards in stored order.
type Snapshot struct {
	Version    string          `json:"version" yaml:"version"`
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Boards     []SnapshotBoard `json:"boards" yaml:"boards"`
}

// SnapshotBoard represents one board with its flat column and card sequences.
type SnapshotBoard struct {
	Key          string           `json:"key" yaml:"key"`
	Name         string           `json:"name" yaml:"name"`
	NextCardID   int              `json:"next_card_id" yaml:"next_card_id"`
	NextColumnID int              `json:"next_column_id" yaml:"next_column_id"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" yaml:"updated_at"`
	Columns      []SnapshotColumn `json:"columns" yaml:"columns"`
	Cards        []SnapshotCard   `json:"cards" yaml:"cards"`
}

// SnapshotColumn represents snapshot column data used by this package.
type SnapshotColumn struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// SnapshotCard represents snapshot card data used by this package.
type SnapshotCard struct {
	ID          string `json:"id" yaml:"id"`
	ColumnID    string `json:"column_id" yaml:"column_id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ExportSnapshot exports every board, or only keys when given.
func (s *Service) ExportSnapshot(ctx context.Context, keys ...string) (Snapshot, error) {
	if err := s.Flush(ctx); err != nil {
		return Snapshot{}, err
	}
	boards, err := s.ListBoards(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	wanted := map[string]struct{}{}
	for _, key := range keys {
		if key = domain.NormalizeBoardKey(key); key != "" {
			wanted[key] = struct{}{}
		}
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Boards:     make([]SnapshotBoard, 0, len(boards)),
	}
	for _, b := range boards {
		if _, ok := wanted[b.Key]; len(wanted) > 0 && !ok {
			continue
		}
		state, err := s.repo.LoadBoardState(ctx, b.Key)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load board %q: %w", b.Key, err)
		}
		snap.Boards = append(snap.Boards, snapshotBoardFromDomain(b, state))
	}
	return snap, nil
}

// ImportSnapshot creates or replaces every board in snap.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	now := s.clock()

	for _, sb := range snap.Boards {
		key := domain.NormalizeBoardKey(sb.Key)
		existing, err := s.repo.GetBoard(ctx, key)
		switch {
		case err == nil:
			existing.Name = strings.TrimSpace(sb.Name)
			if existing.Name == "" {
				existing.Name = key
			}
			existing.UpdatedAt = now.UTC()
			if err := s.repo.UpdateBoard(ctx, existing); err != nil {
				return err
			}
		case errors.Is(err, ErrNotFound):
			b, err := domain.NewBoard(s.idGen(), key, sb.Name, now)
			if err != nil {
				return err
			}
			if !sb.CreatedAt.IsZero() {
				b.CreatedAt = sb.CreatedAt.UTC()
			}
			if err := s.repo.CreateBoard(ctx, b); err != nil {
				return err
			}
		default:
			return err
		}

		event := domain.ChangeEvent{
			BoardKey:    key,
			SubjectKind: domain.SubjectBoard,
			SubjectID:   key,
			Operation:   domain.ChangeOperationUpdate,
			Metadata:    map[string]string{"source": "import"},
			OccurredAt:  now.UTC(),
		}
		if err := s.repo.SaveBoardState(ctx, key, sb.toState(), []domain.ChangeEvent{event}); err != nil {
			return err
		}

		s.mu.Lock()
		delete(s.open, key)
		s.mu.Unlock()
	}
	return nil
}

// Validate checks structural consistency of a snapshot.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	keys := map[string]struct{}{}
	for i, b := range s.Boards {
		key := domain.NormalizeBoardKey(b.Key)
		if key == "" {
			return fmt.Errorf("%w: boards[%d].key is required", ErrInvalidSnapshot, i)
		}
		if _, ok := keys[key]; ok {
			return fmt.Errorf("%w: duplicate board key %q", ErrInvalidSnapshot, key)
		}
		keys[key] = struct{}{}
		if b.NextCardID < 0 || b.NextColumnID < 0 {
			return fmt.Errorf("%w: board %q has negative id counters", ErrInvalidSnapshot, key)
		}

		columns := map[string]struct{}{}
		for j, c := range b.Columns {
			if _, err := domain.NewColumn(c.ID, c.Title); err != nil {
				return fmt.Errorf("%w: board %q columns[%d]: %v", ErrInvalidSnapshot, key, j, err)
			}
			if _, ok := columns[c.ID]; ok {
				return fmt.Errorf("%w: board %q duplicate column id %q", ErrInvalidSnapshot, key, c.ID)
			}
			columns[c.ID] = struct{}{}
		}
		cards := map[string]struct{}{}
		for j, c := range b.Cards {
			if _, err := domain.NewCard(domain.CardInput(c)); err != nil {
				return fmt.Errorf("%w: board %q cards[%d]: %v", ErrInvalidSnapshot, key, j, err)
			}
			if _, ok := cards[c.ID]; ok {
				return fmt.Errorf("%w: board %q duplicate card id %q", ErrInvalidSnapshot, key, c.ID)
			}
			if _, ok := columns[c.ColumnID]; !ok {
				return fmt.Errorf("%w: board %q card %q references unknown column %q", ErrInvalidSnapshot, key, c.ID, c.ColumnID)
			}
			cards[c.ID] = struct{}{}
		}
	}
	return nil
}

func snapshotBoardFromDomain(b domain.Board, state board.State) SnapshotBoard {
	out := SnapshotBoard{
		Key:          b.Key,
		Name:         b.Name,
		NextCardID:   max(b.NextCardID, state.NextCardID),
		NextColumnID: max(b.NextColumnID, state.NextColumnID),
		CreatedAt:    b.CreatedAt.UTC(),
		UpdatedAt:    b.UpdatedAt.UTC(),
		Columns:      make([]SnapshotColumn, 0, len(state.Columns)),
		Cards:        make([]SnapshotCard, 0, len(state.Cards)),
	}
	for _, c := range state.Columns {
		out.Columns = append(out.Columns, SnapshotColumn{ID: c.ID, Title: c.Title})
	}
	for _, c := range state.Cards {
		out.Cards = append(out.Cards, SnapshotCard(c))
	}
	return out
}

func (b SnapshotBoard) toState() board.State {
	state := board.State{
		NextCardID:   b.NextCardID,
		NextColumnID: b.NextColumnID,
		Columns:      make([]domain.Column, 0, len(b.Columns)),
		Cards:        make([]domain.Card, 0, len(b.Cards)),
	}
	for _, c := range b.Columns {
		state.Columns = append(state.Columns, domain.Column{ID: strings.TrimSpace(c.ID), Title: strings.TrimSpace(c.Title)})
	}
	for _, c := range b.Cards {
		card, _ := domain.NewCard(domain.CardInput(c))
		state.Cards = append(state.Cards, card)
	}
	// Counters must clear ids that already exist.
	return board.FromState(state).Snapshot()
}
