package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randomtoy/raffle-go/internal/domain"
	"github.com/randomtoy/raffle-go/internal/ports"
	"github.com/randomtoy/raffle-go/internal/reveal"
)

var ErrSessionNotFound = errors.New("session not found")

const tracerName = "github.com/randomtoy/raffle-go/internal/app"

// DrawService applies draw operations to stored sessions. Operations on
// the same session are serialized; different sessions never share state.
type DrawService struct {
	store    *StateStore
	notifier ports.Notifier
	rng      domain.RNG
	tracer   trace.Tracer
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once nobody holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewDrawService(store *StateStore, notifier ports.Notifier, rng domain.RNG, logger *slog.Logger) *DrawService {
	return &DrawService{
		store:    store,
		notifier: notifier,
		rng:      rng,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
		locks:    make(map[string]*sessionLock),
	}
}

func (s *DrawService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *DrawService) startSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "raffle."+op, trace.WithAttributes(attribute.String("raffle.session_id", id)))
}

func endSpan(span trace.Span, sess domain.Session, err error) {
	span.SetAttributes(
		attribute.String("raffle.mode", string(sess.Mode)),
		attribute.Int("raffle.remaining", sess.Remaining()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// mutate loads id, applies fn and persists the result. Nothing is stored
// when fn fails.
func (s *DrawService) mutate(ctx context.Context, op, id string, fn func(domain.Session) (domain.Session, error)) (sess domain.Session, err error) {
	ctx, span := s.startSpan(ctx, op, id)
	defer func() { endSpan(span, sess, err) }()

	unlock := s.lock(id)
	defer unlock()

	cur, err := s.store.Load(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if err := s.store.Save(ctx, id, next); err != nil {
		return cur, err
	}
	return next, nil
}

func (s *DrawService) notify(ctx context.Context, t ports.EventType, id string, sess domain.Session, w *domain.Winner) {
	s.notifier.Notify(ctx, ports.Event{
		Type:      t,
		SessionID: id,
		Mode:      sess.Mode,
		Remaining: sess.Remaining(),
		Drawn:     sess.DrawnCount(),
		Winner:    w,
	})
}

// CreateSession stores a new empty session under a fresh id.
func (s *DrawService) CreateSession(ctx context.Context) (string, domain.Session, error) {
	id := uuid.NewString()
	ctx, span := s.startSpan(ctx, "create_session", id)
	sess := domain.NewSession()
	err := s.store.Save(ctx, id, sess)
	endSpan(span, sess, err)
	if err != nil {
		return "", domain.Session{}, err
	}
	s.logger.InfoContext(ctx, "session created", "session_id", id)
	return id, sess, nil
}

// Session returns the stored session.
func (s *DrawService) Session(ctx context.Context, id string) (domain.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Load(ctx, id)
}

func (s *DrawService) StartNumberDraw(ctx context.Context, id string, min, max int) (domain.Session, error) {
	sess, err := s.mutate(ctx, "start_number_draw", id, func(cur domain.Session) (domain.Session, error) {
		return domain.StartNumberDraw(cur, min, max)
	})
	if err != nil {
		return sess, fmt.Errorf("start number draw: %w", err)
	}
	s.notify(ctx, ports.EventSessionStarted, id, sess, nil)
	return sess, nil
}

func (s *DrawService) StartNameDraw(ctx context.Context, id, raw string) (domain.Session, error) {
	sess, err := s.mutate(ctx, "start_name_draw", id, func(cur domain.Session) (domain.Session, error) {
		return domain.StartNameDraw(cur, raw)
	})
	if err != nil {
		return sess, fmt.Errorf("start name draw: %w", err)
	}
	s.notify(ctx, ports.EventSessionStarted, id, sess, nil)
	return sess, nil
}

// DrawOne draws a single winner from the session's active pool.
func (s *DrawService) DrawOne(ctx context.Context, id string) (domain.Session, domain.Winner, error) {
	var w domain.Winner
	sess, err := s.mutate(ctx, "draw_one", id, func(cur domain.Session) (domain.Session, error) {
		next, winner, err := domain.DrawOne(cur, s.rng)
		w = winner
		return next, err
	})
	if err != nil {
		return sess, domain.Winner{}, fmt.Errorf("draw: %w", err)
	}

	s.logger.DebugContext(ctx, "winner drawn", "session_id", id, "winner", w.Value(), "remaining", w.Remaining)
	s.notify(ctx, ports.EventWinnerDrawn, id, sess, &w)
	return sess, w, nil
}

// DrawWithReveal plays the reveal sequence for the configured delay,
// publishing each shuffle frame, and then draws. Cancelling ctx during the
// sequence abandons it without drawing.
func (s *DrawService) DrawWithReveal(ctx context.Context, id string, seq *reveal.Sequencer) (domain.Session, domain.Winner, error) {
	cur, err := s.Session(ctx, id)
	if err != nil {
		return domain.Session{}, domain.Winner{}, err
	}
	if cur.Remaining() == 0 {
		return cur, domain.Winner{}, fmt.Errorf("draw: %w", domain.ErrPoolExhausted)
	}

	delay := time.Duration(s.store.LoadSettings(ctx).RevealDelayMs) * time.Millisecond

	var (
		sess domain.Session
		w    domain.Winner
	)
	err = seq.Run(ctx, reveal.Labels(cur), delay,
		func(label string) {
			s.notifier.Notify(ctx, ports.Event{Type: ports.EventShuffleFrame, SessionID: id, Mode: cur.Mode, Frame: label})
		},
		func() error {
			// The draw must finish even if the caller goes away now.
			var err error
			sess, w, err = s.DrawOne(context.WithoutCancel(ctx), id)
			return err
		},
	)
	if err != nil {
		return sess, domain.Winner{}, err
	}
	return sess, w, nil
}

func (s *DrawService) ResetDraw(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.mutate(ctx, "reset_draw", id, domain.ResetDraw)
	if err != nil {
		return sess, fmt.Errorf("reset: %w", err)
	}
	s.notify(ctx, ports.EventDrawReset, id, sess, nil)
	return sess, nil
}

// DiscardSession returns the session to its empty default. Settings are
// kept.
func (s *DrawService) DiscardSession(ctx context.Context, id string) (sess domain.Session, err error) {
	ctx, span := s.startSpan(ctx, "discard_session", id)
	defer func() { endSpan(span, sess, err) }()

	unlock := s.lock(id)
	defer unlock()

	if _, err := s.store.Load(ctx, id); err != nil && !errors.Is(err, domain.ErrCorrupt) {
		return domain.Session{}, err
	}
	sess, err = s.store.Clear(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("discard: %w", err)
	}
	s.notify(ctx, ports.EventSessionDiscarded, id, sess, nil)
	return sess, nil
}

// PurgeSession deletes the session record. The id is unknown afterwards.
func (s *DrawService) PurgeSession(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "purge_session", id)
	defer func() { endSpan(span, domain.Session{}, err) }()

	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	s.logger.InfoContext(ctx, "session purged", "session_id", id)
	s.notifier.Notify(ctx, ports.Event{Type: ports.EventSessionPurged, SessionID: id})
	return nil
}

// SetScreen records the caller's current screen.
func (s *DrawService) SetScreen(ctx context.Context, id, screen string) (domain.Session, error) {
	return s.mutate(ctx, "set_screen", id, func(cur domain.Session) (domain.Session, error) {
		next := cur.Clone()
		next.ScreenID = screen
		return next, nil
	})
}

// Export returns the persisted record of a session.
func (s *DrawService) Export(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return Serialize(sess)
}

// Restore replaces the session under id with the one in blob, creating it
// if needed. A corrupt blob leaves any existing session untouched.
func (s *DrawService) Restore(ctx context.Context, id string, blob []byte) (sess domain.Session, err error) {
	ctx, span := s.startSpan(ctx, "restore", id)
	defer func() { endSpan(span, sess, err) }()

	restored, err := Deserialize(blob)
	if err != nil {
		return domain.Session{}, fmt.Errorf("restore: %w", err)
	}

	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Save(ctx, id, restored); err != nil {
		return domain.Session{}, err
	}
	s.logger.InfoContext(ctx, "session restored", "session_id", id, "mode", restored.Mode)
	return restored, nil
}

func (s *DrawService) LoadSettings(ctx context.Context) domain.Settings {
	return s.store.LoadSettings(ctx)
}

func (s *DrawService) SaveSettings(ctx context.Context, settings domain.Settings) error {
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
