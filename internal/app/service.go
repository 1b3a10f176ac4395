package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

// CurrentBoardSetting is the settings key that stores the selected board.
const CurrentBoardSetting = "current_board"

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// DefaultColumns are the column titles seeded into a new board.
	DefaultColumns []string
	// Persister receives mutations of every store the service opens. Nil
	// disables background saves.
	Persister *Persister
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service manages boards and mediates store access for hosts.
type Service struct {
	repo           Repository
	idGen          IDGenerator
	clock          Clock
	defaultColumns []string
	persister      *Persister

	// mu guards open; every WithBoard callback runs while holding it.
	mu   sync.Mutex
	open map[string]*board.Store
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	columns := sanitizeColumnTitles(cfg.DefaultColumns)
	if len(columns) == 0 {
		columns = defaultColumnTitles()
	}
	return &Service{
		repo:           repo,
		idGen:          idGen,
		clock:          clock,
		defaultColumns: columns,
		persister:      cfg.Persister,
		open:           map[string]*board.Store{},
	}
}

func defaultColumnTitles() []string {
	return []string{"To Do", "In Progress", "Done"}
}

func sanitizeColumnTitles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, title := range in {
		title = strings.TrimSpace(title)
		if title == "" || slices.Contains(out, title) {
			continue
		}
		out = append(out, title)
	}
	return out
}

// ListBoards lists every known board ordered by key.
func (s *Service) ListBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := s.repo.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(boards, func(a, b domain.Board) int {
		return strings.Compare(a.Key, b.Key)
	})
	return boards, nil
}

// GetBoard returns the board record for key.
func (s *Service) GetBoard(ctx context.Context, key string) (domain.Board, error) {
	key = domain.NormalizeBoardKey(key)
	if key == "" {
		return domain.Board{}, domain.ErrInvalidBoardKey
	}
	return s.repo.GetBoard(ctx, key)
}

// CreateBoard creates a board seeded with the default columns. An empty
// key generates one from the clock.
func (s *Service) CreateBoard(ctx context.Context, key, name string) (domain.Board, error) {
	now := s.clock()
	key = domain.NormalizeBoardKey(key)
	if key == "" {
		key = domain.GenerateBoardKey(now)
	}
	if _, err := s.repo.GetBoard(ctx, key); err == nil {
		return domain.Board{}, fmt.Errorf("%w: %q", ErrBoardExists, key)
	} else if !errors.Is(err, ErrNotFound) {
		return domain.Board{}, err
	}

	b, err := domain.NewBoard(s.idGen(), key, name, now)
	if err != nil {
		return domain.Board{}, err
	}
	if err := s.repo.CreateBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}

	store := board.New()
	for _, title := range s.defaultColumns {
		if _, err := store.AddColumn(title); err != nil {
			return domain.Board{}, err
		}
	}
	state := store.Snapshot()
	event := domain.ChangeEvent{
		BoardKey:    key,
		SubjectKind: domain.SubjectBoard,
		SubjectID:   key,
		Operation:   domain.ChangeOperationCreate,
		OccurredAt:  now.UTC(),
	}
	if err := s.repo.SaveBoardState(ctx, key, state, []domain.ChangeEvent{event}); err != nil {
		return domain.Board{}, err
	}
	b.NextCardID, b.NextColumnID = state.NextCardID, state.NextColumnID
	return b, nil
}

// EnsureBoard returns the board for key, creating it when absent.
func (s *Service) EnsureBoard(ctx context.Context, key string) (domain.Board, error) {
	key = domain.NormalizeBoardKey(key)
	if key != "" {
		b, err := s.repo.GetBoard(ctx, key)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return domain.Board{}, err
		}
	}
	return s.CreateBoard(ctx, key, "")
}

// RenameBoard changes the display name of a board.
func (s *Service) RenameBoard(ctx context.Context, key, name string) (domain.Board, error) {
	b, err := s.GetBoard(ctx, key)
	if err != nil {
		return domain.Board{}, err
	}
	if err := b.Rename(name, s.clock()); err != nil {
		return domain.Board{}, err
	}
	if err := s.repo.UpdateBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// SelectBoard records key as the current board.
func (s *Service) SelectBoard(ctx context.Context, key string) (domain.Board, error) {
	b, err := s.GetBoard(ctx, key)
	if err != nil {
		return domain.Board{}, err
	}
	if err := s.repo.SetSetting(ctx, CurrentBoardSetting, b.Key); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// CurrentBoard returns the selected board.
func (s *Service) CurrentBoard(ctx context.Context) (domain.Board, error) {
	key, err := s.repo.GetSetting(ctx, CurrentBoardSetting)
	if errors.Is(err, ErrNotFound) || (err == nil && strings.TrimSpace(key) == "") {
		return domain.Board{}, ErrNoActiveBoard
	}
	if err != nil {
		return domain.Board{}, err
	}
	b, err := s.repo.GetBoard(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return domain.Board{}, ErrNoActiveBoard
	}
	return b, err
}

// EnsureCurrentBoard returns the selected board, falling back to the first
// known board and finally to a newly created one. The result is selected.
func (s *Service) EnsureCurrentBoard(ctx context.Context) (domain.Board, error) {
	b, err := s.CurrentBoard(ctx)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNoActiveBoard) {
		return domain.Board{}, err
	}
	boards, err := s.ListBoards(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	if len(boards) > 0 {
		return s.SelectBoard(ctx, boards[0].Key)
	}
	b, err = s.CreateBoard(ctx, "", "")
	if err != nil {
		return domain.Board{}, err
	}
	return s.SelectBoard(ctx, b.Key)
}

// DeleteBoard deletes a board. When it was the current board the first
// remaining board becomes current, or none when no boards remain.
func (s *Service) DeleteBoard(ctx context.Context, key string) error {
	key = domain.NormalizeBoardKey(key)
	if key == "" {
		return domain.ErrInvalidBoardKey
	}
	s.mu.Lock()
	delete(s.open, key)
	s.mu.Unlock()
	if s.persister != nil {
		s.persister.Discard(key)
	}
	if err := s.repo.DeleteBoard(ctx, key); err != nil {
		return err
	}

	current, err := s.repo.GetSetting(ctx, CurrentBoardSetting)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current != key {
		return nil
	}
	boards, err := s.ListBoards(ctx)
	if err != nil {
		return err
	}
	next := ""
	if len(boards) > 0 {
		next = boards[0].Key
	}
	return s.repo.SetSetting(ctx, CurrentBoardSetting, next)
}

// OpenBoard loads a fresh store for key. The caller owns the returned
// store and must drive it from one goroutine. Mutations are persisted.
func (s *Service) OpenBoard(ctx context.Context, key string) (*board.Store, error) {
	b, err := s.GetBoard(ctx, key)
	if err != nil {
		return nil, err
	}
	state, err := s.repo.LoadBoardState(ctx, b.Key)
	if err != nil {
		return nil, err
	}
	state.NextCardID = max(state.NextCardID, b.NextCardID)
	state.NextColumnID = max(state.NextColumnID, b.NextColumnID)
	store := board.FromState(state)
	if s.persister != nil {
		store.Observe(s.persister.Observer(b.Key))
	}
	return store, nil
}

// WithBoard runs fn against the shared store for key while holding the
// service lock. Use it from hosts that serve concurrent callers.
func (s *Service) WithBoard(ctx context.Context, key string, fn func(*board.Store) error) error {
	key = domain.NormalizeBoardKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.open[key]
	if !ok {
		var err error
		store, err = s.OpenBoard(ctx, key)
		if err != nil {
			return err
		}
		s.open[key] = store
	}
	return fn(store)
}

// BoardState returns a snapshot of the shared store for key.
func (s *Service) BoardState(ctx context.Context, key string) (board.State, error) {
	var state board.State
	err := s.WithBoard(ctx, key, func(store *board.Store) error {
		state = store.Snapshot()
		return nil
	})
	return state, err
}

// MoveCardInput holds input values for move card operations.
type MoveCardInput struct {
	BoardKey     string
	CardID       string
	ToColumnID   string
	BeforeCardID string
}

// MoveCard moves a card on the shared store and returns the new state.
func (s *Service) MoveCard(ctx context.Context, in MoveCardInput) (board.State, error) {
	var state board.State
	err := s.WithBoard(ctx, in.BoardKey, func(store *board.Store) error {
		if _, ok := store.Column(in.ToColumnID); !ok {
			return fmt.Errorf("%w: column %q", ErrNotFound, in.ToColumnID)
		}
		if err := store.TryMoveCard(in.CardID, in.ToColumnID, in.BeforeCardID); err != nil {
			return mapStoreErr(err)
		}
		state = store.Snapshot()
		return nil
	})
	return state, err
}

// MoveColumnInput holds input values for move column operations.
type MoveColumnInput struct {
	BoardKey       string
	ColumnID       string
	BeforeColumnID string
}

// MoveColumn moves a column on the shared store and returns the new state.
func (s *Service) MoveColumn(ctx context.Context, in MoveColumnInput) (board.State, error) {
	var state board.State
	err := s.WithBoard(ctx, in.BoardKey, func(store *board.Store) error {
		if err := store.TryMoveColumn(in.ColumnID, in.BeforeColumnID); err != nil {
			return mapStoreErr(err)
		}
		state = store.Snapshot()
		return nil
	})
	return state, err
}

// AddCard appends a card to a column of the shared store.
func (s *Service) AddCard(ctx context.Context, boardKey, columnID, title, description string) (domain.Card, error) {
	var card domain.Card
	err := s.WithBoard(ctx, boardKey, func(store *board.Store) error {
		if _, ok := store.Column(columnID); !ok {
			return fmt.Errorf("%w: column %q", ErrNotFound, columnID)
		}
		var err error
		card, err = store.AddCard(columnID, title, description)
		return err
	})
	return card, err
}

// AddColumn appends a column to the shared store.
func (s *Service) AddColumn(ctx context.Context, boardKey, title string) (domain.Column, error) {
	var column domain.Column
	err := s.WithBoard(ctx, boardKey, func(store *board.Store) error {
		var err error
		column, err = store.AddColumn(title)
		return err
	})
	return column, err
}

// RemoveCard deletes a card from the shared store.
func (s *Service) RemoveCard(ctx context.Context, boardKey, cardID string) error {
	return s.WithBoard(ctx, boardKey, func(store *board.Store) error {
		if _, ok := store.Card(cardID); !ok {
			return fmt.Errorf("%w: card %q", ErrNotFound, cardID)
		}
		store.RemoveCard(cardID)
		return nil
	})
}

// RemoveColumn deletes a column and every card it owns from the shared store.
func (s *Service) RemoveColumn(ctx context.Context, boardKey, columnID string) error {
	return s.WithBoard(ctx, boardKey, func(store *board.Store) error {
		if _, ok := store.Column(columnID); !ok {
			return fmt.Errorf("%w: column %q", ErrNotFound, columnID)
		}
		store.RemoveCardsInColumn(columnID)
		store.RemoveColumn(columnID)
		return nil
	})
}

// ListChangeEvents returns the newest change events for a board.
func (s *Service) ListChangeEvents(ctx context.Context, boardKey string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListChangeEvents(ctx, domain.NormalizeBoardKey(boardKey), limit)
}

// Flush writes any pending background saves.
func (s *Service) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Flush(ctx)
}

func mapStoreErr(err error) error {
	if errors.Is(err, board.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
