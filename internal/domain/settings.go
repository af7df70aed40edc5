package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// AllowedRevealDelays lists the suspense durations, in milliseconds, the UI
// offers. DefaultRevealDelayMs must be one of them.
var AllowedRevealDelays = []int{1000, 2000, 3000, 5000}

const DefaultRevealDelayMs = 3000

// Settings are the user preferences. They are stored apart from the
// session and survive a discard.
type Settings struct {
	Theme         Theme `json:"theme"`
	RevealDelayMs int   `json:"revealDelayMs"`
	SoundEnabled  bool  `json:"soundEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:         ThemeAuto,
		RevealDelayMs: DefaultRevealDelayMs,
		SoundEnabled:  true,
	}
}

// Validate reports whether every field holds an allowed value.
func (s Settings) Validate() error {
	switch s.Theme {
	case ThemeAuto, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidSettings, s.Theme)
	}
	if !slices.Contains(AllowedRevealDelays, s.RevealDelayMs) {
		return fmt.Errorf("%w: reveal delay %dms not in %v", ErrInvalidSettings, s.RevealDelayMs, AllowedRevealDelays)
	}
	return nil
}

// NormalizeSettings decodes a stored settings record. It falls back to
// DefaultSettings when raw
//   - is empty or not a JSON object,
//   - lacks any of theme, revealDelayMs or soundEnabled,
//   - has a field of the wrong JSON type,
//   - or fails Validate.
func NormalizeSettings(raw []byte) Settings {
	var rec struct {
		Theme         *Theme `json:"theme"`
		RevealDelayMs *int   `json:"revealDelayMs"`
		SoundEnabled  *bool  `json:"soundEnabled"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &rec) != nil {
		return DefaultSettings()
	}
	if rec.Theme == nil || rec.RevealDelayMs == nil || rec.SoundEnabled == nil {
		return DefaultSettings()
	}

	s := Settings{
		Theme:         *rec.Theme,
		RevealDelayMs: *rec.RevealDelayMs,
		SoundEnabled:  *rec.SoundEnabled,
	}
	if s.Validate() != nil {
		return DefaultSettings()
	}
	return s
}
