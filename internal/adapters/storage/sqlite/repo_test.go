package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanschultz/tavla/internal/app"
	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
	_ "modernc.org/sqlite"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "tavla.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepository_BoardLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	b, err := domain.NewBoard("b1", "roadmap", "Roadmap", now)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	if err := repo.CreateBoard(ctx, b); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	dup, _ := domain.NewBoard("b2", "roadmap", "", now)
	if err := repo.CreateBoard(ctx, dup); !errors.Is(err, app.ErrBoardExists) {
		t.Fatalf("expected ErrBoardExists, got %v", err)
	}

	loaded, err := repo.GetBoard(ctx, "roadmap")
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if loaded.Name != "Roadmap" || !loaded.CreatedAt.Equal(now) {
		t.Fatalf("unexpected board %#v", loaded)
	}
	if err := loaded.Rename("Plan", now.Add(time.Minute)); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if err := repo.UpdateBoard(ctx, loaded); err != nil {
		t.Fatalf("UpdateBoard() error = %v", err)
	}

	boards, err := repo.ListBoards(ctx)
	if err != nil {
		t.Fatalf("ListBoards() error = %v", err)
	}
	if len(boards) != 1 || boards[0].Name != "Plan" {
		t.Fatalf("unexpected boards %#v", boards)
	}

	if err := repo.DeleteBoard(ctx, "roadmap"); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	if _, err := repo.GetBoard(ctx, "roadmap"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteBoard(ctx, "roadmap"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRepository_SaveAndLoadBoardStateKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b, _ := domain.NewBoard("b1", "k", "", now)
	if err := repo.CreateBoard(ctx, b); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}

	store := board.New()
	todo, _ := store.AddColumn("Todo")
	done, _ := store.AddColumn("Done")
	a, _ := store.AddCard(todo.ID, "a", "")
	_, _ = store.AddCard(todo.ID, "b", "body")
	c, _ := store.AddCard(done.ID, "c", "")
	store.MoveCard(a.ID, done.ID, c.ID)
	store.MoveColumn(done.ID, todo.ID)

	events := []domain.ChangeEvent{
		{SubjectKind: domain.SubjectCard, SubjectID: a.ID, Operation: domain.ChangeOperationMove, Metadata: map[string]string{"column_id": done.ID}, OccurredAt: now},
		{SubjectKind: domain.SubjectColumn, SubjectID: done.ID, Operation: domain.ChangeOperationMove, OccurredAt: now.Add(time.Second)},
	}
	if err := repo.SaveBoardState(ctx, "k", store.Snapshot(), events); err != nil {
		t.Fatalf("SaveBoardState() error = %v", err)
	}

	state, err := repo.LoadBoardState(ctx, "k")
	if err != nil {
		t.Fatalf("LoadBoardState() error = %v", err)
	}
	if len(state.Columns) != 2 || state.Columns[0].ID != done.ID {
		t.Fatalf("unexpected columns %#v", state.Columns)
	}
	got := []string{}
	for _, card := range state.Cards {
		got = append(got, card.ID+"@"+card.ColumnID)
	}
	want := []string{"ca1@col0", "ca0@col1", "ca2@col1"}
	if len(got) != len(want) {
		t.Fatalf("unexpected cards %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected cards %#v", got)
		}
	}
	if state.Cards[0].Description != "body" {
		t.Fatalf("unexpected description %q", state.Cards[0].Description)
	}
	if state.NextCardID != 3 || state.NextColumnID != 2 {
		t.Fatalf("unexpected counters %d/%d", state.NextCardID, state.NextColumnID)
	}

	loaded, err := repo.ListChangeEvents(ctx, "k", 10)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(loaded) != 2 || loaded[0].SubjectKind != domain.SubjectColumn || loaded[1].Metadata["column_id"] != done.ID {
		t.Fatalf("unexpected events %#v", loaded)
	}

	store.RemoveCardsInColumn(todo.ID)
	store.RemoveColumn(todo.ID)
	if err := repo.SaveBoardState(ctx, "k", store.Snapshot(), nil); err != nil {
		t.Fatalf("SaveBoardState() error = %v", err)
	}
	state, err = repo.LoadBoardState(ctx, "k")
	if err != nil {
		t.Fatalf("LoadBoardState() error = %v", err)
	}
	if len(state.Columns) != 1 || len(state.Cards) != 2 {
		t.Fatalf("unexpected state after removal %#v", state)
	}

	if err := repo.SaveBoardState(ctx, "missing", board.State{}, nil); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_Settings(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	if _, err := repo.GetSetting(ctx, app.CurrentBoardSetting); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, v := range []string{"a", "b"} {
		if err := repo.SetSetting(ctx, app.CurrentBoardSetting, v); err != nil {
			t.Fatalf("SetSetting() error = %v", err)
		}
	}
	got, err := repo.GetSetting(ctx, app.CurrentBoardSetting)
	if err != nil || got != "b" {
		t.Fatalf("GetSetting() = %q, %v", got, err)
	}
}

func TestRepository_ServiceIntegration(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	persister := app.NewPersister(repo, app.PersisterConfig{Interval: time.Hour})
	n := 0
	svc := app.NewService(repo, func() string { n++; return "id-" + string(rune('a'+n)) }, nil, app.ServiceConfig{Persister: persister})

	b, err := svc.EnsureCurrentBoard(ctx)
	if err != nil {
		t.Fatalf("EnsureCurrentBoard() error = %v", err)
	}
	store, err := svc.OpenBoard(ctx, b.Key)
	if err != nil {
		t.Fatalf("OpenBoard() error = %v", err)
	}
	columns := store.Columns()
	card, err := store.AddCard(columns[0].ID, "ship it", "")
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	store.MoveCard(card.ID, columns[2].ID, "")
	if err := persister.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := svc.OpenBoard(ctx, b.Key)
	if err != nil {
		t.Fatalf("OpenBoard() error = %v", err)
	}
	got, ok := reopened.Card(card.ID)
	if !ok || got.ColumnID != columns[2].ID {
		t.Fatalf("unexpected reopened card %#v, %v", got, ok)
	}
}
