package http_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	httpadapter "github.com/randomtoy/raffle-go/internal/adapters/http"
	"github.com/randomtoy/raffle-go/internal/adapters/notify"
	"github.com/randomtoy/raffle-go/internal/adapters/storage/memory"
	"github.com/randomtoy/raffle-go/internal/app"
)

type fixedRNG struct{ val int }

func (r fixedRNG) Intn(n int) int { return r.val % n }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := app.NewStateStore(memory.NewStore(), slog.Default())
	hub := notify.NewHub(slog.Default())
	svc := app.NewDrawService(store, hub, fixedRNG{val: 0}, slog.Default())

	e := echo.New()
	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(slog.Default()))
	httpadapter.NewHandler(svc, hub, time.Millisecond, fixedRNG{}).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/v1/sessions", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body)
	}
	resp := decode[httpadapter.SessionResponse](t, rec)
	if resp.Mode != nil || resp.ScreenID != "screen-menu" {
		t.Fatalf("unexpected new session: %+v", resp)
	}
	return resp.ID
}

func TestHealthz(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected healthz: %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id header")
	}
}

func TestNumberDrawFlow(t *testing.T) {
	e := newServer(t)
	id := createSession(t, e)
	base := "/v1/sessions/" + id

	rec := do(t, e, http.MethodPost, base+"/numbers", echo.MIMEApplicationJSON, `{"min":1,"max":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	started := decode[httpadapter.SessionResponse](t, rec)
	if started.Remaining != 3 || *started.Mode != "numbers" {
		t.Fatalf("unexpected start: %+v", started)
	}

	for _, want := range []float64{1, 2, 3} {
		rec = do(t, e, http.MethodPost, base+"/draw", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("draw: %d %s", rec.Code, rec.Body)
		}
		resp := decode[httpadapter.DrawResponse](t, rec)
		if resp.Winner != want {
			t.Errorf("expected winner %v, got %v", want, resp.Winner)
		}
	}

	rec = do(t, e, http.MethodPost, base+"/draw", "", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on exhausted pool, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, base, "", "")
	snap := decode[httpadapter.SessionResponse](t, rec)
	if len(snap.NumberPool.Drawn) != 3 || snap.NumberPool.Drawn[0] != 3 {
		t.Errorf("unexpected drawn: %v", snap.NumberPool.Drawn)
	}

	rec = do(t, e, http.MethodPost, base+"/reset", "", "")
	if decode[httpadapter.SessionResponse](t, rec).Remaining != 3 {
		t.Errorf("reset did not restore the pool: %s", rec.Body)
	}
}

func TestStartNumbers_BadInput(t *testing.T) {
	e := newServer(t)
	id := createSession(t, e)

	for _, body := range []string{`{"min":5,"max":5}`, `{"min":1}`, `{"min":"a","max":3}`} {
		rec := do(t, e, http.MethodPost, "/v1/sessions/"+id+"/numbers", echo.MIMEApplicationJSON, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestStartNames_JSONAndPlainText(t *testing.T) {
	e := newServer(t)
	id := createSession(t, e)
	path := "/v1/sessions/" + id + "/names"

	rec := do(t, e, http.MethodPost, path, echo.MIMEApplicationJSON, `{"text":"Ana, Beto\nCarla,,  Dudu "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("json start: %d %s", rec.Code, rec.Body)
	}
	resp := decode[httpadapter.SessionResponse](t, rec)
	if strings.Join(resp.NamePool.Pending, "|") != "Ana|Beto|Carla|Dudu" {
		t.Errorf("unexpected pending: %v", resp.NamePool.Pending)
	}

	rec = do(t, e, http.MethodPost, path, echo.MIMETextPlainCharsetUTF8, "x\ny\nz\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("text start: %d %s", rec.Code, rec.Body)
	}
	if decode[httpadapter.SessionResponse](t, rec).Remaining != 3 {
		t.Errorf("unexpected plain text start: %s", rec.Body)
	}

	rec = do(t, e, http.MethodPost, path, echo.MIMETextPlain, "lonely")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for one name, got %d", rec.Code)
	}
}

func TestExportRestore(t *testing.T) {
	e := newServer(t)
	id := createSession(t, e)
	_ = do(t, e, http.MethodPost, "/v1/sessions/"+id+"/names", echo.MIMEApplicationJSON, `{"text":"a,b,c"}`)
	_ = do(t, e, http.MethodPost, "/v1/sessions/"+id+"/draw", "", "")

	rec := do(t, e, http.MethodGet, "/v1/sessions/"+id+"/export", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body)
	}
	blob := rec.Body.String()

	rec = do(t, e, http.MethodPut, "/v1/sessions/restored/export", echo.MIMEApplicationJSON, blob)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rec.Code, rec.Body)
	}
	resp := decode[httpadapter.SessionResponse](t, rec)
	if resp.ID != "restored" || resp.Remaining != 2 || resp.NamePool.Drawn[0] != "a" {
		t.Errorf("unexpected restored session: %+v", resp)
	}

	rec = do(t, e, http.MethodPut, "/v1/sessions/restored/export", echo.MIMEApplicationJSON, `{"mode":"names"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for corrupt record, got %d", rec.Code)
	}
}

func TestScreenAndDiscard(t *testing.T) {
	e := newServer(t)
	id := createSession(t, e)
	base := "/v1/sessions/" + id

	rec := do(t, e, http.MethodPut, base+"/screen", echo.MIMEApplicationJSON, `{"screenId":"screen-names-setup"}`)
	if decode[httpadapter.SessionResponse](t, rec).ScreenID != "screen-names-setup" {
		t.Fatalf("screen not set: %s", rec.Body)
	}
	if rec := do(t, e, http.MethodPut, base+"/screen", echo.MIMEApplicationJSON, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty screen, got %d", rec.Code)
	}

	_ = do(t, e, http.MethodPost, base+"/numbers", echo.MIMEApplicationJSON, `{"min":1,"max":9}`)
	rec = do(t, e, http.MethodDelete, base, "", "")
	resp := decode[httpadapter.SessionResponse](t, rec)
	if resp.Mode != nil || resp.Remaining != 0 || resp.ScreenID != "screen-menu" {
		t.Errorf("unexpected discarded session: %+v", resp)
	}

	if rec := do(t, e, http.MethodDelete, base+"?purge=true", "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for purge, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, base, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after purge, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodDelete, base+"?purge=yes-please", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed purge flag, got %d", rec.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	e := newServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/sessions/nope"},
		{http.MethodPost, "/v1/sessions/nope/draw"},
		{http.MethodPost, "/v1/sessions/nope/reset"},
		{http.MethodDelete, "/v1/sessions/nope"},
		{http.MethodGet, "/v1/sessions/nope/events"},
	} {
		if rec := do(t, e, tc.method, tc.path, "", ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSettings(t *testing.T) {
	e := newServer(t)

	rec := do(t, e, http.MethodGet, "/v1/settings", "", "")
	got := decode[httpadapter.SettingsDTO](t, rec)
	if got.Theme != "auto" || got.RevealDelayMs != 3000 || !got.SoundEnabled {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	rec = do(t, e, http.MethodPut, "/v1/settings", echo.MIMEApplicationJSON, `{"theme":"dark","revealDelayMs":1000,"soundEnabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, e, http.MethodGet, "/v1/settings", "", "")
	if got := decode[httpadapter.SettingsDTO](t, rec); got.Theme != "dark" || got.SoundEnabled {
		t.Errorf("settings not saved: %+v", got)
	}

	rec = do(t, e, http.MethodPut, "/v1/settings", echo.MIMEApplicationJSON, `{"theme":"dark","revealDelayMs":1234,"soundEnabled":false}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid delay, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodPut, "/v1/settings", echo.MIMEApplicationJSON, `{"theme":"light","revealDelayMs":1000}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing soundEnabled, got %d", rec.Code)
	}
	rec = do(t, e, http.MethodGet, "/v1/settings", "", "")
	if got := decode[httpadapter.SettingsDTO](t, rec); got.Theme != "dark" {
		t.Errorf("rejected settings were saved: %+v", got)
	}
}

func TestDrawWithRevealStreamsEvents(t *testing.T) {
	e := newServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	id := createSession(t, e)
	_ = do(t, e, http.MethodPut, "/v1/settings", echo.MIMEApplicationJSON, `{"theme":"auto","revealDelayMs":1000,"soundEnabled":true}`)
	_ = do(t, e, http.MethodPost, "/v1/sessions/"+id+"/names", echo.MIMEApplicationJSON, `{"text":"a,b"}`)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + id + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	// Give the hub a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/v1/sessions/"+id+"/draw?reveal=true", "", nil)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("draw status %d", resp.StatusCode)
	}

	frames := 0
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg["type"] == "shuffle_frame" {
			frames++
			continue
		}
		if msg["type"] != "winner_drawn" || msg["winner"] != "a" {
			t.Fatalf("unexpected message: %v", msg)
		}
		break
	}
	if frames == 0 {
		t.Error("expected shuffle frames before the winner")
	}
}
