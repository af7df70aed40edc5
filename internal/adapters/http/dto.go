package http

import "github.com/randomtoy/raffle-go/internal/domain"

// SessionResponse is the JSON shape of a session snapshot.
type SessionResponse struct {
	ID         string        `json:"id"`
	Mode       *string       `json:"mode"`
	ScreenID   string        `json:"screenId"`
	NumberPool NumberPoolDTO `json:"numberPool"`
	NamePool   NamePoolDTO   `json:"namePool"`
	Remaining  int           `json:"remaining"`
	Drawn      int           `json:"drawn"`
}

type NumberPoolDTO struct {
	Min       int   `json:"min"`
	Max       int   `json:"max"`
	Available []int `json:"available"`
	Drawn     []int `json:"drawn"`
}

type NamePoolDTO struct {
	Pending []string `json:"pending"`
	Drawn   []string `json:"drawn"`
}

// DrawResponse is returned by POST /v1/sessions/:id/draw.
type DrawResponse struct {
	Winner    any             `json:"winner"`
	Remaining int             `json:"remaining"`
	Drawn     int             `json:"drawn"`
	Session   SessionResponse `json:"session"`
}

type StartNumbersRequest struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type StartNamesRequest struct {
	Text string `json:"text"`
}

type ScreenRequest struct {
	ScreenID string `json:"screenId"`
}

type SettingsDTO struct {
	Theme         string `json:"theme"`
	RevealDelayMs int    `json:"revealDelayMs"`
	SoundEnabled  bool   `json:"soundEnabled"`
}

// SettingsRequest is the body of PUT /v1/settings. Every field is required.
type SettingsRequest struct {
	Theme         string `json:"theme"`
	RevealDelayMs int    `json:"revealDelayMs"`
	SoundEnabled  *bool  `json:"soundEnabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toSessionResponse(id string, s domain.Session) SessionResponse {
	var mode *string
	if s.Mode != domain.ModeNone {
		m := string(s.Mode)
		mode = &m
	}
	return SessionResponse{
		ID:       id,
		Mode:     mode,
		ScreenID: s.ScreenID,
		NumberPool: NumberPoolDTO{
			Min:       s.Numbers.Min,
			Max:       s.Numbers.Max,
			Available: orEmpty(s.Numbers.Available),
			Drawn:     orEmpty(s.Numbers.Drawn),
		},
		NamePool: NamePoolDTO{
			Pending: orEmpty(s.Names.Pending),
			Drawn:   orEmpty(s.Names.Drawn),
		},
		Remaining: s.Remaining(),
		Drawn:     s.DrawnCount(),
	}
}

func toSettingsDTO(s domain.Settings) SettingsDTO {
	return SettingsDTO{
		Theme:         string(s.Theme),
		RevealDelayMs: s.RevealDelayMs,
		SoundEnabled:  s.SoundEnabled,
	}
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
