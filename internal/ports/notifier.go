package ports

import (
	"context"

	"github.com/randomtoy/raffle-go/internal/domain"
)

// EventType names a notification sent to the presentation layer.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventShuffleFrame     EventType = "shuffle_frame"
	EventWinnerDrawn      EventType = "winner_drawn"
	EventDrawReset        EventType = "draw_reset"
	EventSessionDiscarded EventType = "session_discarded"
	EventSessionPurged    EventType = "session_purged"
)

// Event describes a change to a session. Winner is set for
// EventWinnerDrawn and Frame for EventShuffleFrame.
type Event struct {
	Type      EventType
	SessionID string
	Mode      domain.Mode
	Remaining int
	Drawn     int
	Winner    *domain.Winner
	Frame     string
}

// Notifier delivers events to whoever renders the draw. Implementations
// must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}
