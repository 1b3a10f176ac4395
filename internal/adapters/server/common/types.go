// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// BoardSummary describes one board in list responses.
type BoardSummary struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoardView is the full ordered layout of one board.
type BoardView struct {
	Key     string       `json:"key"`
	Name    string       `json:"name"`
	Columns []ColumnView `json:"columns"`
}

// ColumnView is one column with its cards in display order.
type ColumnView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Cards []CardView `json:"cards"`
}

// CardView is one card as exposed over the wire.
type CardView struct {
	ID          string `json:"id"`
	ColumnID    string `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// MoveCardRequest moves one card ahead of BeforeCardID, or to the end of
// ToColumnID when BeforeCardID is empty.
type MoveCardRequest struct {
	BoardKey     string `json:"-"`
	CardID       string `json:"-"`
	ToColumnID   string `json:"to_column_id"`
	BeforeCardID string `json:"before_card_id,omitempty"`
}

// MoveColumnRequest moves one column ahead of BeforeColumnID, or to the end.
type MoveColumnRequest struct {
	BoardKey       string `json:"-"`
	ColumnID       string `json:"-"`
	BeforeColumnID string `json:"before_column_id,omitempty"`
}

// BoardService is the board surface shared by the HTTP and MCP adapters.
type BoardService interface {
	ListBoards(context.Context) ([]BoardSummary, error)
	GetBoard(context.Context, string) (BoardView, error)
	MoveCard(context.Context, MoveCardRequest) (BoardView, error)
	MoveColumn(context.Context, MoveColumnRequest) (BoardView, error)
}
