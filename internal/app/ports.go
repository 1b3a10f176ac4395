package app

import (
	"context"

	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

// Repository persists boards and their ordered contents.
type Repository interface {
	CreateBoard(context.Context, domain.Board) error
	UpdateBoard(context.Context, domain.Board) error
	GetBoard(context.Context, string) (domain.Board, error)
	ListBoards(context.Context) ([]domain.Board, error)
	DeleteBoard(context.Context, string) error

	// LoadBoardState returns the board's columns and cards in stored order.
	LoadBoardState(context.Context, string) (board.State, error)
	// SaveBoardState replaces the board's columns, cards and id counters and
	// appends events, in one transaction.
	SaveBoardState(context.Context, string, board.State, []domain.ChangeEvent) error
	ListChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)

	GetSetting(context.Context, string) (string, error)
	SetSetting(context.Context, string, string) error
}
