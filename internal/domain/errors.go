package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidBoardKey = errors.New("invalid board key")
	ErrInvalidColumnID = errors.New("invalid column id")
	ErrInvalidCounter  = errors.New("invalid id counter")
)
