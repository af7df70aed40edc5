package notify_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randomtoy/raffle-go/internal/adapters/notify"
	"github.com/randomtoy/raffle-go/internal/domain"
	"github.com/randomtoy/raffle-go/internal/ports"
)

func startHub(t *testing.T) (*notify.Hub, string) {
	t.Helper()
	hub := notify.NewHub(slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(r.Context(), w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliversToSessionSubscribers(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url+"?session=s1")
	defer conn.Close()
	other := dial(t, url+"?session=s2")
	defer other.Close()
	waitFor(t, func() bool { return hub.Subscribers("s1") == 1 && hub.Subscribers("s2") == 1 })

	hub.Notify(context.Background(), ports.Event{
		Type:      ports.EventWinnerDrawn,
		SessionID: "s1",
		Mode:      domain.ModeNames,
		Remaining: 2,
		Drawn:     1,
		Winner:    &domain.Winner{Mode: domain.ModeNames, Name: "Ana"},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg["type"] != "winner_drawn" || msg["winner"] != "Ana" || msg["sessionId"] != "s1" {
		t.Errorf("unexpected message: %v", msg)
	}
	if msg["remaining"] != float64(2) || msg["drawn"] != float64(1) {
		t.Errorf("unexpected counts: %v", msg)
	}

	_ = other.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("subscriber of another session received the event")
	}
}

func TestHub_UnsubscribesOnClose(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url+"?session=s1")
	waitFor(t, func() bool { return hub.Subscribers("s1") == 1 })

	_ = conn.Close()
	waitFor(t, func() bool { return hub.Subscribers("s1") == 0 })
}

func TestHub_NotifyWithoutSubscribers(t *testing.T) {
	hub := notify.NewHub(slog.Default())
	hub.Notify(context.Background(), ports.Event{Type: ports.EventDrawReset, SessionID: "nobody"})
	if hub.Subscribers("nobody") != 0 {
		t.Error("expected no subscribers")
	}
}
