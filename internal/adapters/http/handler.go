package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/randomtoy/raffle-go/internal/app"
	"github.com/randomtoy/raffle-go/internal/domain"
	"github.com/randomtoy/raffle-go/internal/reveal"
)

// EventStreamer streams a session's events to a client connection.
type EventStreamer interface {
	Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID string) error
}

type Handler struct {
	svc        *app.DrawService
	events     EventStreamer
	revealTick time.Duration
	frameRNG   domain.RNG
}

// NewHandler wires the HTTP routes to svc. frameRNG must be safe for
// concurrent use; it only picks cosmetic shuffle frames.
func NewHandler(svc *app.DrawService, events EventStreamer, revealTick time.Duration, frameRNG domain.RNG) *Handler {
	return &Handler{svc: svc, events: events, revealTick: revealTick, frameRNG: frameRNG}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	v1 := e.Group("/v1")
	v1.GET("/settings", h.GetSettings)
	v1.PUT("/settings", h.PutSettings)

	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions/:id", h.GetSession)
	v1.DELETE("/sessions/:id", h.DiscardSession)
	v1.GET("/sessions/:id/export", h.ExportSession)
	v1.PUT("/sessions/:id/export", h.RestoreSession)
	v1.PUT("/sessions/:id/screen", h.SetScreen)
	v1.POST("/sessions/:id/numbers", h.StartNumbers)
	v1.POST("/sessions/:id/names", h.StartNames)
	v1.POST("/sessions/:id/draw", h.Draw)
	v1.POST("/sessions/:id/reset", h.Reset)
	v1.GET("/sessions/:id/events", h.Events)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) CreateSession(c echo.Context) error {
	id, sess, err := h.svc.CreateSession(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(id, sess))
}

func (h *Handler) GetSession(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.svc.Session(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

// DiscardSession empties the session. With ?purge=true the record is
// deleted and the id stops resolving.
func (h *Handler) DiscardSession(c echo.Context) error {
	id := c.Param("id")

	purge := false
	if raw := c.QueryParam("purge"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "purge must be a boolean"})
		}
		purge = parsed
	}
	if purge {
		if err := h.svc.PurgeSession(c.Request().Context(), id); err != nil {
			return mapError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	sess, err := h.svc.DiscardSession(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

func (h *Handler) ExportSession(c echo.Context) error {
	blob, err := h.svc.Export(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSONBlob(http.StatusOK, blob)
}

func (h *Handler) RestoreSession(c echo.Context) error {
	id := c.Param("id")
	blob, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}
	sess, err := h.svc.Restore(c.Request().Context(), id, blob)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

func (h *Handler) SetScreen(c echo.Context) error {
	var req ScreenRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ScreenID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "screenId is required"})
	}
	id := c.Param("id")
	sess, err := h.svc.SetScreen(c.Request().Context(), id, req.ScreenID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

func (h *Handler) StartNumbers(c echo.Context) error {
	var req StartNumbersRequest
	if err := c.Bind(&req); err != nil || req.Min == nil || req.Max == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "min and max must be integers"})
	}
	id := c.Param("id")
	sess, err := h.svc.StartNumberDraw(c.Request().Context(), id, *req.Min, *req.Max)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

// StartNames accepts either {"text": "..."} or a text/plain body holding
// the contents of an imported file.
func (h *Handler) StartNames(c echo.Context) error {
	var raw string
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMETextPlain) {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		}
		raw = string(body)
	} else {
		var req StartNamesRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}
		raw = req.Text
	}

	id := c.Param("id")
	sess, err := h.svc.StartNameDraw(c.Request().Context(), id, raw)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

// Draw draws one winner. With ?reveal=true the request is held for the
// configured reveal delay while shuffle frames go out on the event stream.
func (h *Handler) Draw(c echo.Context) error {
	withReveal := false
	if raw := c.QueryParam("reveal"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reveal must be a boolean"})
		}
		withReveal = parsed
	}

	id := c.Param("id")
	ctx := c.Request().Context()

	var (
		sess domain.Session
		w    domain.Winner
		err  error
	)
	if withReveal {
		sess, w, err = h.svc.DrawWithReveal(ctx, id, reveal.NewSequencer(h.revealTick, h.frameRNG))
	} else {
		sess, w, err = h.svc.DrawOne(ctx, id)
	}
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, DrawResponse{
		Winner:    w.Value(),
		Remaining: w.Remaining,
		Drawn:     w.DrawnCount,
		Session:   toSessionResponse(id, sess),
	})
}

func (h *Handler) Reset(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.svc.ResetDraw(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(id, sess))
}

func (h *Handler) Events(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.svc.Session(c.Request().Context(), id); err != nil {
		return mapError(c, err)
	}
	if err := h.events.Serve(c.Request().Context(), c.Response(), c.Request(), id); err != nil {
		slog.WarnContext(c.Request().Context(), "event stream failed", "session_id", id, "error", err)
	}
	return nil
}

func (h *Handler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, toSettingsDTO(h.svc.LoadSettings(c.Request().Context())))
}

func (h *Handler) PutSettings(c echo.Context) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.SoundEnabled == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "soundEnabled is required"})
	}
	settings := domain.Settings{
		Theme:         domain.Theme(req.Theme),
		RevealDelayMs: req.RevealDelayMs,
		SoundEnabled:  *req.SoundEnabled,
	}
	if err := h.svc.SaveSettings(c.Request().Context(), settings); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toSettingsDTO(settings))
}

func mapError(c echo.Context, err error) error {
	requestID, _ := c.Get("request_id").(string)

	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInsufficientNames),
		errors.Is(err, domain.ErrInvalidSettings):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrCorrupt):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPoolExhausted), errors.Is(err, domain.ErrNoActiveDraw):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client left during a reveal; nothing was drawn.
		return c.NoContent(499)
	default:
		slog.Error("internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
