// Package reveal plays the suspense sequence shown before a winner is
// revealed: a run of random pool items flashed at a fixed tick, followed by
// the real draw. The frames are cosmetic; they come from their own RNG and
// never influence which item is drawn.
package reveal

import (
	"context"
	"strconv"
	"time"

	"github.com/randomtoy/raffle-go/internal/domain"
)

const DefaultTick = 50 * time.Millisecond

// Sequencer runs reveal sequences. It is safe for sequential use only;
// give each goroutine its own Sequencer or a goroutine-safe RNG.
type Sequencer struct {
	tick time.Duration
	rng  domain.RNG
}

func NewSequencer(tick time.Duration, rng domain.RNG) *Sequencer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Sequencer{tick: tick, rng: rng}
}

// Run calls frame with a random label every tick until delay elapses, then
// calls commit once. If ctx ends first, commit is never called and ctx's
// error is returned. Once commit has started it is not interrupted.
func (s *Sequencer) Run(ctx context.Context, labels []string, delay time.Duration, frame func(string), commit func() error) error {
	if len(labels) > 0 && delay > 0 {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		deadline := time.NewTimer(delay)
		defer deadline.Stop()

	shuffle:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-deadline.C:
				break shuffle
			case <-ticker.C:
				frame(labels[s.rng.Intn(len(labels))])
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return commit()
}

// Labels returns the display text of every item left in the active pool.
func Labels(s domain.Session) []string {
	switch s.Mode {
	case domain.ModeNumbers:
		out := make([]string, len(s.Numbers.Available))
		for i, v := range s.Numbers.Available {
			out[i] = strconv.Itoa(v)
		}
		return out
	case domain.ModeNames:
		return append([]string(nil), s.Names.Pending...)
	default:
		return nil
	}
}
