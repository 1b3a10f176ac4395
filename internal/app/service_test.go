package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	boards   map[string]domain.Board
	states   map[string]board.State
	events   []domain.ChangeEvent
	settings map[string]string
	saves    int
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		boards:   map[string]domain.Board{},
		states:   map[string]board.State{},
		settings: map[string]string{},
	}
}

func (f *fakeRepo) CreateBoard(_ context.Context, b domain.Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[b.Key] = b
	return nil
}

func (f *fakeRepo) UpdateBoard(_ context.Context, b domain.Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[b.Key]; !ok {
		return ErrNotFound
	}
	f.boards[b.Key] = b
	return nil
}

func (f *fakeRepo) GetBoard(_ context.Context, key string) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[key]
	if !ok {
		return domain.Board{}, ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) ListBoards(context.Context) ([]domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Board, 0, len(f.boards))
	for _, b := range f.boards {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRepo) DeleteBoard(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[key]; !ok {
		return ErrNotFound
	}
	delete(f.boards, key)
	delete(f.states, key)
	return nil
}

func (f *fakeRepo) LoadBoardState(_ context.Context, key string) (board.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.boards[key]; !ok {
		return board.State{}, ErrNotFound
	}
	return f.states[key], nil
}

func (f *fakeRepo) SaveBoardState(_ context.Context, key string, state board.State, events []domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	b, ok := f.boards[key]
	if !ok {
		return ErrNotFound
	}
	b.NextCardID, b.NextColumnID = state.NextCardID, state.NextColumnID
	f.boards[key] = b
	f.states[key] = state
	f.events = append(f.events, events...)
	f.saves++
	return nil
}

func (f *fakeRepo) ListChangeEvents(_ context.Context, key string, limit int) ([]domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ChangeEvent{}
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].BoardKey == key {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSetting(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.settings[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) SetSetting(_ context.Context, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[name] = value
	return nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock() Clock {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func columnTitles(columns []domain.Column) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, c.Title)
	}
	return out
}

func TestCreateBoardSeedsDefaultColumns(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{DefaultColumns: []string{"Backlog", " ", "Doing", "Backlog"}})

	b, err := svc.CreateBoard(context.Background(), "", "Roadmap")
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if b.Key != domain.GenerateBoardKey(fixedClock()()) {
		t.Fatalf("unexpected generated key %q", b.Key)
	}
	if b.Name != "Roadmap" || b.NextColumnID != 2 {
		t.Fatalf("unexpected board %#v", b)
	}
	got := columnTitles(repo.states[b.Key].Columns)
	if !slices.Equal(got, []string{"Backlog", "Doing"}) {
		t.Fatalf("unexpected columns %#v", got)
	}
	if _, err := svc.CreateBoard(context.Background(), b.Key, ""); !errors.Is(err, ErrBoardExists) {
		t.Fatalf("expected ErrBoardExists, got %v", err)
	}
}

func TestEnsureCurrentBoardCreatesAndSelects(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.CurrentBoard(ctx); !errors.Is(err, ErrNoActiveBoard) {
		t.Fatalf("expected ErrNoActiveBoard, got %v", err)
	}
	b, err := svc.EnsureCurrentBoard(ctx)
	if err != nil {
		t.Fatalf("EnsureCurrentBoard() error = %v", err)
	}
	if repo.settings[CurrentBoardSetting] != b.Key {
		t.Fatalf("expected %q selected, got %q", b.Key, repo.settings[CurrentBoardSetting])
	}
	if got := columnTitles(repo.states[b.Key].Columns); !slices.Equal(got, defaultColumnTitles()) {
		t.Fatalf("unexpected default columns %#v", got)
	}
	again, err := svc.EnsureCurrentBoard(ctx)
	if err != nil || again.Key != b.Key {
		t.Fatalf("EnsureCurrentBoard() = %q, %v", again.Key, err)
	}
}

func TestDeleteCurrentBoardSelectsFirstRemaining(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{})
	ctx := context.Background()
	for _, key := range []string{"alpha", "beta", "gamma"} {
		if _, err := svc.CreateBoard(ctx, key, ""); err != nil {
			t.Fatalf("CreateBoard(%q) error = %v", key, err)
		}
	}
	if _, err := svc.SelectBoard(ctx, "beta"); err != nil {
		t.Fatalf("SelectBoard() error = %v", err)
	}
	if err := svc.DeleteBoard(ctx, "gamma"); err != nil {
		t.Fatalf("DeleteBoard(gamma) error = %v", err)
	}
	if repo.settings[CurrentBoardSetting] != "beta" {
		t.Fatalf("deleting another board changed selection to %q", repo.settings[CurrentBoardSetting])
	}
	if err := svc.DeleteBoard(ctx, "beta"); err != nil {
		t.Fatalf("DeleteBoard(beta) error = %v", err)
	}
	if repo.settings[CurrentBoardSetting] != "alpha" {
		t.Fatalf("expected alpha selected, got %q", repo.settings[CurrentBoardSetting])
	}
	if err := svc.DeleteBoard(ctx, "alpha"); err != nil {
		t.Fatalf("DeleteBoard(alpha) error = %v", err)
	}
	if repo.settings[CurrentBoardSetting] != "" {
		t.Fatalf("expected no selection, got %q", repo.settings[CurrentBoardSetting])
	}
	if err := svc.DeleteBoard(ctx, "  "); !errors.Is(err, domain.ErrInvalidBoardKey) {
		t.Fatalf("expected ErrInvalidBoardKey, got %v", err)
	}
}

func TestMoveCardThroughServicePersists(t *testing.T) {
	repo := newFakeRepo()
	persister := NewPersister(repo, PersisterConfig{Interval: time.Hour})
	defer func() { _ = persister.Close(context.Background()) }()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{DefaultColumns: []string{"A", "B"}, Persister: persister})
	ctx := context.Background()

	if _, err := svc.CreateBoard(ctx, "k", ""); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	first, err := svc.AddCard(ctx, "k", "col0", "first", "")
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if _, err := svc.AddCard(ctx, "k", "col0", "second", ""); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	state, err := svc.MoveCard(ctx, MoveCardInput{BoardKey: "k", CardID: first.ID, ToColumnID: "col1"})
	if err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if state.Cards[1].ID != first.ID || state.Cards[1].ColumnID != "col1" {
		t.Fatalf("unexpected cards %#v", state.Cards)
	}
	if persister.Pending() != 1 {
		t.Fatalf("expected one pending board, got %d", persister.Pending())
	}
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	saved := repo.states["k"]
	if len(saved.Cards) != 2 || saved.Cards[1].ID != first.ID || saved.NextCardID != 2 {
		t.Fatalf("unexpected saved state %#v", saved)
	}
	events, err := svc.ListChangeEvents(ctx, "k", 10)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(events) != 4 || events[0].Operation != domain.ChangeOperationMove {
		t.Fatalf("unexpected events %#v", events)
	}
}

func TestServiceReportsMissingIDs(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{})
	ctx := context.Background()
	if _, err := svc.CreateBoard(ctx, "k", ""); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.MoveCard(ctx, MoveCardInput{BoardKey: "k", CardID: "ca9", ToColumnID: "col0"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for card, got %v", err)
	}
	if _, err := svc.MoveCard(ctx, MoveCardInput{BoardKey: "k", CardID: "ca9", ToColumnID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for column, got %v", err)
	}
	if _, err := svc.MoveColumn(ctx, MoveColumnInput{BoardKey: "k", ColumnID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for column move, got %v", err)
	}
	if _, err := svc.BoardState(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for board, got %v", err)
	}
}

func TestRemoveColumnCascadesThroughService(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{DefaultColumns: []string{"A", "B"}})
	ctx := context.Background()
	if _, err := svc.CreateBoard(ctx, "k", ""); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.AddCard(ctx, "k", "col0", "x", ""); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if _, err := svc.AddCard(ctx, "k", "col1", "y", ""); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if err := svc.RemoveColumn(ctx, "k", "col0"); err != nil {
		t.Fatalf("RemoveColumn() error = %v", err)
	}
	state, err := svc.BoardState(ctx, "k")
	if err != nil {
		t.Fatalf("BoardState() error = %v", err)
	}
	if len(state.Columns) != 1 || len(state.Cards) != 1 || state.Cards[0].ColumnID != "col1" {
		t.Fatalf("unexpected state %#v", state)
	}
}

func TestOpenBoardReturnsIndependentStore(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), fixedClock(), ServiceConfig{DefaultColumns: []string{"A", "B", "C"}})
	ctx := context.Background()
	if _, err := svc.CreateBoard(ctx, "k", ""); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	store, err := svc.OpenBoard(ctx, "k")
	if err != nil {
		t.Fatalf("OpenBoard() error = %v", err)
	}
	store.MoveColumn("col2", "col1")
	got := columnTitles(store.Columns())
	if !slices.Equal(got, []string{"A", "C", "B"}) {
		t.Fatalf("unexpected order %#v", got)
	}
	column, err := store.AddColumn("D")
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if column.ID != "col3" {
		t.Fatalf("expected col3, got %q", column.ID)
	}
}
