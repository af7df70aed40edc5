package domain

import (
	"slices"
)

// StartNumberDraw begins a number draw over [min, max]. Any previous number
// state is discarded. On error s is returned unchanged.
func StartNumberDraw(s Session, min, max int) (Session, error) {
	if min >= max {
		return s, ErrInvalidRange
	}
	if uint64(max)-uint64(min) >= MaxRangeSize {
		return s, ErrRangeTooLarge
	}

	out := s.Clone()
	out.Mode = ModeNumbers
	out.Numbers = NumberPool{
		Min:       min,
		Max:       max,
		Available: fullRange(min, max),
		Drawn:     []int{},
	}
	out.ScreenID = ScreenNumbersPlay
	return out, nil
}

// StartNameDraw begins a name draw from raw user input (see ParseNames).
func StartNameDraw(s Session, raw string) (Session, error) {
	names := ParseNames(raw)
	if len(names) < 2 {
		return s, ErrInsufficientNames
	}

	out := s.Clone()
	out.Mode = ModeNames
	out.Names = NamePool{
		Pending: names,
		Drawn:   []string{},
	}
	out.ScreenID = ScreenNamesPlay
	return out, nil
}

// DrawOne picks one item uniformly at random from the active pool, removes
// it and prepends it to the drawn history. The relative order of the items
// left in the pool is preserved.
func DrawOne(s Session, rng RNG) (Session, Winner, error) {
	n := s.Remaining()
	if n == 0 {
		return s, Winner{}, ErrPoolExhausted
	}

	i := rng.Intn(n)
	out := s.Clone()
	w := Winner{Mode: s.Mode}

	switch s.Mode {
	case ModeNumbers:
		w.Number = out.Numbers.Available[i]
		out.Numbers.Available = slices.Delete(out.Numbers.Available, i, i+1)
		out.Numbers.Drawn = slices.Insert(out.Numbers.Drawn, 0, w.Number)
	case ModeNames:
		w.Name = out.Names.Pending[i]
		out.Names.Pending = slices.Delete(out.Names.Pending, i, i+1)
		out.Names.Drawn = slices.Insert(out.Names.Drawn, 0, w.Name)
	}

	w.Remaining = out.Remaining()
	w.DrawnCount = out.DrawnCount()
	return out, w, nil
}

// ResetDraw puts every drawn item back into the pool. For numbers the pool
// is rebuilt in ascending order; for names the drawn items are appended in
// the order they were drawn.
func ResetDraw(s Session) (Session, error) {
	out := s.Clone()

	switch s.Mode {
	case ModeNumbers:
		out.Numbers.Available = fullRange(s.Numbers.Min, s.Numbers.Max)
		out.Numbers.Drawn = []int{}
	case ModeNames:
		back := slices.Clone(s.Names.Drawn)
		slices.Reverse(back)
		out.Names.Pending = append(out.Names.Pending, back...)
		out.Names.Drawn = []string{}
	default:
		return s, ErrNoActiveDraw
	}

	return out, nil
}

// DiscardSession returns the empty session.
func DiscardSession() Session {
	return NewSession()
}

func fullRange(min, max int) []int {
	n := max - min + 1
	out := make([]int, n)
	for i := range n {
		out[i] = min + i
	}
	return out
}
