package wshandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	ws "github.com/Temutjin2k/dispatch-ops/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func read(t *testing.T, c *websocket.Conn) Message {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	if err := c.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerFeed_Broadcast(t *testing.T) {
	hub := ws.NewConnHub(logger.Nop())
	feed := NewManagerFeed(hub, "dispatch", nil, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(feed.Serve))
	t.Cleanup(srv.Close)
	t.Cleanup(feed.Close)

	a, b := dial(t, srv), dial(t, srv)
	for _, c := range []*websocket.Conn{a, b} {
		if m := read(t, c); m.Type != MessageWelcome {
			t.Fatalf("expected welcome, got %+v", m)
		}
	}
	waitFor(t, func() bool { return hub.Len() == 2 })

	orderID := uuid.New()
	e := models.NewEvent(types.EventOrderAssigned, orderID, time.Now())
	e.Status = types.OrderAssigned.String()
	if err := feed.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*websocket.Conn{a, b} {
		m := read(t, c)
		if m.Type != MessageEvent || m.Event == nil || m.Event.EntityID != orderID || m.Event.Status != "ASSIGNED" {
			t.Fatalf("unexpected message %+v", m)
		}
	}
}

func TestManagerFeed_DisconnectRemovesClient(t *testing.T) {
	hub := ws.NewConnHub(logger.Nop())
	feed := NewManagerFeed(hub, "dispatch", nil, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(feed.Serve))
	t.Cleanup(srv.Close)

	c := dial(t, srv)
	read(t, c)
	waitFor(t, func() bool { return hub.Len() == 1 })

	_ = c.Close()
	waitFor(t, func() bool { return hub.Len() == 0 })
}

func TestManagerFeed_RejectsOrigin(t *testing.T) {
	hub := ws.NewConnHub(logger.Nop())
	feed := NewManagerFeed(hub, "dispatch", []string{"https://ops.example.com"}, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(feed.Serve))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("foreign origin must be rejected")
	}
}
