package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randomtoy/raffle-go/internal/domain"
	"github.com/randomtoy/raffle-go/internal/ports"
)

const (
	sessionKeyPrefix = "session/"
	settingsKey      = "settings"
)

// sessionRecord is the persisted shape of a session. Pointer and raw
// fields let Deserialize tell a missing field from a zero one.
type sessionRecord struct {
	Mode       json.RawMessage `json:"mode"`
	NumberPool *numberRecord   `json:"numberPool"`
	NamePool   *nameRecord     `json:"namePool"`
	ScreenID   string          `json:"screenId"`
}

type numberRecord struct {
	Min       *int  `json:"min"`
	Max       *int  `json:"max"`
	Available []int `json:"available"`
	Drawn     []int `json:"drawn"`
}

type nameRecord struct {
	Pending []string `json:"pending"`
	Drawn   []string `json:"drawn"`
}

// Serialize encodes s as a session record. A session with no mode is
// written with "mode": null.
func Serialize(s domain.Session) ([]byte, error) {
	mode := json.RawMessage("null")
	if s.Mode != domain.ModeNone {
		raw, err := json.Marshal(string(s.Mode))
		if err != nil {
			return nil, fmt.Errorf("marshal mode: %w", err)
		}
		mode = raw
	}

	min, max := s.Numbers.Min, s.Numbers.Max
	rec := sessionRecord{
		Mode: mode,
		NumberPool: &numberRecord{
			Min:       &min,
			Max:       &max,
			Available: nonNil(s.Numbers.Available),
			Drawn:     nonNil(s.Numbers.Drawn),
		},
		NamePool: &nameRecord{
			Pending: nonNil(s.Names.Pending),
			Drawn:   nonNil(s.Names.Drawn),
		},
		ScreenID: s.ScreenID,
	}

	out, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return out, nil
}

// Deserialize decodes and validates a session record. Every failure wraps
// domain.ErrCorrupt and no partial session is returned.
func Deserialize(blob []byte) (domain.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrCorrupt, err)
	}

	mode, err := decodeMode(rec.Mode)
	if err != nil {
		return domain.Session{}, err
	}
	if rec.NumberPool == nil || rec.NumberPool.Min == nil || rec.NumberPool.Max == nil ||
		rec.NumberPool.Available == nil || rec.NumberPool.Drawn == nil {
		return domain.Session{}, fmt.Errorf("%w: numberPool is incomplete", domain.ErrCorrupt)
	}
	if rec.NamePool == nil || rec.NamePool.Pending == nil || rec.NamePool.Drawn == nil {
		return domain.Session{}, fmt.Errorf("%w: namePool is incomplete", domain.ErrCorrupt)
	}

	s := domain.Session{
		Mode: mode,
		Numbers: domain.NumberPool{
			Min:       *rec.NumberPool.Min,
			Max:       *rec.NumberPool.Max,
			Available: rec.NumberPool.Available,
			Drawn:     rec.NumberPool.Drawn,
		},
		Names: domain.NamePool{
			Pending: rec.NamePool.Pending,
			Drawn:   rec.NamePool.Drawn,
		},
		ScreenID: rec.ScreenID,
	}
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func decodeMode(raw json.RawMessage) (domain.Mode, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: mode is missing", domain.ErrCorrupt)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return domain.ModeNone, nil
	}

	var m string
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("%w: mode: %w", domain.ErrCorrupt, err)
	}
	switch mode := domain.Mode(m); mode {
	case domain.ModeNumbers, domain.ModeNames:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", domain.ErrCorrupt, m)
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// StateStore persists sessions and settings in a key-value backend.
type StateStore struct {
	kv     ports.StateStore
	logger *slog.Logger
}

func NewStateStore(kv ports.StateStore, logger *slog.Logger) *StateStore {
	return &StateStore{kv: kv, logger: logger}
}

// Load returns the session stored under id, or ErrSessionNotFound.
func (s *StateStore) Load(ctx context.Context, id string) (domain.Session, error) {
	blob, err := s.kv.Get(ctx, sessionKeyPrefix+id)
	if errors.Is(err, ports.ErrNotFound) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return Deserialize(blob)
}

// Save overwrites the session stored under id.
func (s *StateStore) Save(ctx context.Context, id string, sess domain.Session) error {
	blob, err := Serialize(sess)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, sessionKeyPrefix+id, blob); err != nil {
		return fmt.Errorf("put session %s: %w", id, err)
	}
	return nil
}

// Clear resets the session stored under id to the empty default. Settings
// are not touched.
func (s *StateStore) Clear(ctx context.Context, id string) (domain.Session, error) {
	empty := domain.DiscardSession()
	if err := s.Save(ctx, id, empty); err != nil {
		return domain.Session{}, err
	}
	return empty, nil
}

// Remove deletes the session stored under id, or returns ErrSessionNotFound.
func (s *StateStore) Remove(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, sessionKeyPrefix+id)
	if errors.Is(err, ports.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// LoadSettings never fails: absent, malformed or unreadable settings all
// yield the defaults.
func (s *StateStore) LoadSettings(ctx context.Context) domain.Settings {
	raw, err := s.kv.Get(ctx, settingsKey)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.logger.WarnContext(ctx, "settings unreadable, using defaults", "error", err)
		}
		return domain.DefaultSettings()
	}
	return domain.NormalizeSettings(raw)
}

// SaveSettings overwrites the stored settings.
func (s *StateStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.kv.Put(ctx, settingsKey, raw); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
