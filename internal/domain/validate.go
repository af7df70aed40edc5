package domain

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Validate reports whether s satisfies the pool invariants. The active pool
// must always hold; an inactive pool is checked only when it is non-empty.
// Every failure wraps ErrCorrupt.
func (s Session) Validate() error {
	switch s.Mode {
	case ModeNone, ModeNumbers, ModeNames:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrCorrupt, s.Mode)
	}

	if s.Mode == ModeNumbers || len(s.Numbers.Available)+len(s.Numbers.Drawn) > 0 {
		if err := s.Numbers.validate(); err != nil {
			return err
		}
	}
	if s.Mode == ModeNames || len(s.Names.Pending)+len(s.Names.Drawn) > 0 {
		if err := s.Names.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p NumberPool) validate() error {
	if p.Min >= p.Max {
		return fmt.Errorf("%w: min %d is not below max %d", ErrCorrupt, p.Min, p.Max)
	}
	if uint64(p.Max)-uint64(p.Min) >= MaxRangeSize {
		return fmt.Errorf("%w: range %d..%d too large", ErrCorrupt, p.Min, p.Max)
	}

	size := p.Max - p.Min + 1
	if len(p.Available)+len(p.Drawn) != size {
		return fmt.Errorf("%w: pool holds %d numbers, range has %d",
			ErrCorrupt, len(p.Available)+len(p.Drawn), size)
	}

	seen := make([]bool, size)
	for _, list := range [][]int{p.Available, p.Drawn} {
		for _, v := range list {
			if v < p.Min || v > p.Max {
				return fmt.Errorf("%w: number %d outside %d..%d", ErrCorrupt, v, p.Min, p.Max)
			}
			if seen[v-p.Min] {
				return fmt.Errorf("%w: number %d appears twice", ErrCorrupt, v)
			}
			seen[v-p.Min] = true
		}
	}
	return nil
}

func (p NamePool) validate() error {
	if len(p.Pending)+len(p.Drawn) < 2 {
		return fmt.Errorf("%w: name draw has fewer than 2 names", ErrCorrupt)
	}
	if slices.Contains(p.Pending, "") || slices.Contains(p.Drawn, "") {
		return fmt.Errorf("%w: empty name", ErrCorrupt)
	}
	for _, list := range [][]string{p.Pending, p.Drawn} {
		for _, name := range list {
			if !utf8.ValidString(name) {
				return fmt.Errorf("%w: name %q is not valid UTF-8", ErrCorrupt, name)
			}
		}
	}
	return nil
}

// Equal reports whether two sessions hold the same state. Nil and empty
// slices compare equal.
func (s Session) Equal(o Session) bool {
	return s.Mode == o.Mode &&
		s.ScreenID == o.ScreenID &&
		s.Numbers.Min == o.Numbers.Min &&
		s.Numbers.Max == o.Numbers.Max &&
		slices.Equal(s.Numbers.Available, o.Numbers.Available) &&
		slices.Equal(s.Numbers.Drawn, o.Numbers.Drawn) &&
		slices.Equal(s.Names.Pending, o.Names.Pending) &&
		slices.Equal(s.Names.Drawn, o.Names.Drawn)
}
