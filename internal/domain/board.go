package domain

import (
	"fmt"
	"strings"
	"time"
)

// BoardKeyPrefix prefixes generated board keys.
const BoardKeyPrefix = "Board-"

// Board represents the persisted record for one named board.
type Board struct {
	ID           string
	Key          string
	Name         string
	NextCardID   int
	NextColumnID int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewBoard constructs a new value for this package.
func NewBoard(id, key, name string, now time.Time) (Board, error) {
	id = strings.TrimSpace(id)
	key = NormalizeBoardKey(key)
	name = strings.TrimSpace(name)
	if id == "" {
		return Board{}, ErrInvalidID
	}
	if key == "" {
		return Board{}, ErrInvalidBoardKey
	}
	if name == "" {
		name = key
	}
	return Board{
		ID:        id,
		Key:       key,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the board without touching its key.
func (b *Board) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	b.Name = name
	b.UpdatedAt = now.UTC()
	return nil
}

// SetCounters records the next card and column ids the board will allocate.
func (b *Board) SetCounters(nextCard, nextColumn int, now time.Time) error {
	if nextCard < 0 || nextColumn < 0 {
		return ErrInvalidCounter
	}
	b.NextCardID = nextCard
	b.NextColumnID = nextColumn
	b.UpdatedAt = now.UTC()
	return nil
}

// NormalizeBoardKey trims a user-supplied board key.
func NormalizeBoardKey(key string) string {
	return strings.TrimSpace(key)
}

// GenerateBoardKey returns a key built from the last six digits of the unix millisecond clock.
func GenerateBoardKey(now time.Time) string {
	millis := now.UnixMilli()
	if millis < 0 {
		millis = -millis
	}
	return fmt.Sprintf("%s%06d", BoardKeyPrefix, millis%1_000_000)
}
