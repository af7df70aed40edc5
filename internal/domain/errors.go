package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange      = errors.New("min must be less than max")
	ErrRangeTooLarge     = fmt.Errorf("%w: range exceeds %d numbers", ErrInvalidRange, MaxRangeSize)
	ErrInsufficientNames = errors.New("at least 2 names are required")
	ErrPoolExhausted     = errors.New("pool is exhausted")
	ErrNoActiveDraw      = errors.New("no active draw")
	ErrCorrupt           = errors.New("persisted session is corrupt")
	ErrInvalidSettings   = errors.New("invalid settings")
)
