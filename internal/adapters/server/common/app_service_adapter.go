package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/tavla/internal/app"
	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service board APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListBoards returns every board ordered by key.
func (a *AppServiceAdapter) ListBoards(ctx context.Context) ([]BoardSummary, error) {
	if a == nil || a.service == nil {
		return nil, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	boards, err := a.service.ListBoards(ctx)
	if err != nil {
		return nil, mapAppError("list boards", err)
	}
	out := make([]BoardSummary, 0, len(boards))
	for _, b := range boards {
		out = append(out, BoardSummary{
			Key:       b.Key,
			Name:      b.Name,
			CreatedAt: b.CreatedAt.UTC(),
			UpdatedAt: b.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

// GetBoard returns one board layout.
func (a *AppServiceAdapter) GetBoard(ctx context.Context, key string) (BoardView, error) {
	if a == nil || a.service == nil {
		return BoardView{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return BoardView{}, fmt.Errorf("board key is required: %w", ErrInvalidRequest)
	}
	b, err := a.service.GetBoard(ctx, key)
	if err != nil {
		return BoardView{}, mapAppError("get board", err)
	}
	state, err := a.service.BoardState(ctx, b.Key)
	if err != nil {
		return BoardView{}, mapAppError("get board", err)
	}
	return boardViewFromState(b, state), nil
}

// MoveCard moves one card and returns the updated layout.
func (a *AppServiceAdapter) MoveCard(ctx context.Context, in MoveCardRequest) (BoardView, error) {
	if a == nil || a.service == nil {
		return BoardView{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	in.BoardKey = strings.TrimSpace(in.BoardKey)
	in.CardID = strings.TrimSpace(in.CardID)
	in.ToColumnID = strings.TrimSpace(in.ToColumnID)
	in.BeforeCardID = strings.TrimSpace(in.BeforeCardID)
	switch {
	case in.BoardKey == "":
		return BoardView{}, fmt.Errorf("board key is required: %w", ErrInvalidRequest)
	case in.CardID == "":
		return BoardView{}, fmt.Errorf("card_id is required: %w", ErrInvalidRequest)
	case in.ToColumnID == "":
		return BoardView{}, fmt.Errorf("to_column_id is required: %w", ErrInvalidRequest)
	}
	b, err := a.service.GetBoard(ctx, in.BoardKey)
	if err != nil {
		return BoardView{}, mapAppError("move card", err)
	}
	state, err := a.service.MoveCard(ctx, app.MoveCardInput{
		BoardKey:     b.Key,
		CardID:       in.CardID,
		ToColumnID:   in.ToColumnID,
		BeforeCardID: in.BeforeCardID,
	})
	if err != nil {
		return BoardView{}, mapAppError("move card", err)
	}
	return boardViewFromState(b, state), nil
}

// MoveColumn moves one column and returns the updated layout.
func (a *AppServiceAdapter) MoveColumn(ctx context.Context, in MoveColumnRequest) (BoardView, error) {
	if a == nil || a.service == nil {
		return BoardView{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	in.BoardKey = strings.TrimSpace(in.BoardKey)
	in.ColumnID = strings.TrimSpace(in.ColumnID)
	in.BeforeColumnID = strings.TrimSpace(in.BeforeColumnID)
	switch {
	case in.BoardKey == "":
		return BoardView{}, fmt.Errorf("board key is required: %w", ErrInvalidRequest)
	case in.ColumnID == "":
		return BoardView{}, fmt.Errorf("column_id is required: %w", ErrInvalidRequest)
	}
	b, err := a.service.GetBoard(ctx, in.BoardKey)
	if err != nil {
		return BoardView{}, mapAppError("move column", err)
	}
	state, err := a.service.MoveColumn(ctx, app.MoveColumnInput{
		BoardKey:       b.Key,
		ColumnID:       in.ColumnID,
		BeforeColumnID: in.BeforeColumnID,
	})
	if err != nil {
		return BoardView{}, mapAppError("move column", err)
	}
	return boardViewFromState(b, state), nil
}

// boardViewFromState groups the flat card sequence under its columns.
func boardViewFromState(b domain.Board, state board.State) BoardView {
	out := BoardView{
		Key:     b.Key,
		Name:    b.Name,
		Columns: make([]ColumnView, 0, len(state.Columns)),
	}
	index := make(map[string]int, len(state.Columns))
	for i, c := range state.Columns {
		index[c.ID] = i
		out.Columns = append(out.Columns, ColumnView{ID: c.ID, Title: c.Title, Cards: []CardView{}})
	}
	for _, c := range state.Cards {
		i, ok := index[c.ColumnID]
		if !ok {
			continue
		}
		out.Columns[i].Cards = append(out.Columns[i].Cards, CardView{
			ID:          c.ID,
			ColumnID:    c.ColumnID,
			Title:       c.Title,
			Description: c.Description,
		})
	}
	return out
}

// mapAppError wraps app and domain failures with transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound), errors.Is(err, board.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidBoardKey),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidColumnID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidName):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
