package domain

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// Mode selects which pool a session draws from.
type Mode string

const (
	ModeNone    Mode = ""
	ModeNumbers Mode = "numbers"
	ModeNames   Mode = "names"
)

// Screen identifiers used by the browser UI. The session stores whichever
// one the caller last set; the engine only moves it on start and discard.
const (
	ScreenMenu         = "screen-menu"
	ScreenNumbersSetup = "screen-numbers-setup"
	ScreenNumbersPlay  = "screen-numbers-play"
	ScreenNamesSetup   = "screen-names-setup"
	ScreenNamesPlay    = "screen-names-play"
)

const (
	DefaultMin = 1
	DefaultMax = 100

	// MaxRangeSize bounds the number of integers a number draw may hold.
	MaxRangeSize = 1_000_000
)

// NumberPool tracks a number draw over [Min, Max].
// Drawn is most-recent-first.
type NumberPool struct {
	Min       int
	Max       int
	Available []int
	Drawn     []int
}

// NamePool tracks a name draw. Duplicated names are distinct items.
// Drawn is most-recent-first.
type NamePool struct {
	Pending []string
	Drawn   []string
}

// Session is the state of one draw in progress. Only the pool matching
// Mode is meaningful; the other one is carried along untouched.
type Session struct {
	Mode     Mode
	Numbers  NumberPool
	Names    NamePool
	ScreenID string
}

// Winner is the outcome of a single draw.
type Winner struct {
	Mode       Mode
	Number     int
	Name       string
	Remaining  int
	DrawnCount int
}

// Value returns the winner formatted for display.
func (w Winner) Value() any {
	if w.Mode == ModeNumbers {
		return w.Number
	}
	return w.Name
}

// NewSession returns the empty session a process starts with.
func NewSession() Session {
	return Session{
		Mode:     ModeNone,
		Numbers:  NumberPool{Min: DefaultMin, Max: DefaultMax},
		ScreenID: ScreenMenu,
	}
}

// Remaining returns the size of the active pool.
func (s Session) Remaining() int {
	switch s.Mode {
	case ModeNumbers:
		return len(s.Numbers.Available)
	case ModeNames:
		return len(s.Names.Pending)
	default:
		return 0
	}
}

// DrawnCount returns how many items the active pool has given out.
func (s Session) DrawnCount() int {
	switch s.Mode {
	case ModeNumbers:
		return len(s.Numbers.Drawn)
	case ModeNames:
		return len(s.Names.Drawn)
	default:
		return 0
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s Session) Clone() Session {
	c := s
	c.Numbers.Available = cloneSlice(s.Numbers.Available)
	c.Numbers.Drawn = cloneSlice(s.Numbers.Drawn)
	c.Names.Pending = cloneSlice(s.Names.Pending)
	c.Names.Drawn = cloneSlice(s.Names.Drawn)
	return c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
