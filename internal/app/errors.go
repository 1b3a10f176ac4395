package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrBoardExists       = errors.New("board already exists")
	ErrNoActiveBoard     = errors.New("no active board")
	ErrInvalidSnapshot   = errors.New("invalid snapshot")
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
)
