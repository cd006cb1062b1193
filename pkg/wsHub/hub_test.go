package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/google/uuid"
)

func TestConnectionHub_AddDelete(t *testing.T) {
	h := NewConnHub(logger.Nop())
	c := NewConn(context.Background(), uuid.New(), nil)

	if err := h.Add(nil); !errors.Is(err, ErrEmptyConn) {
		t.Fatalf("expected empty conn error, got %v", err)
	}
	if err := h.Add(c); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.Add(c); !errors.Is(err, ErrDuplicateConn) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected one client, got %d", h.Len())
	}

	if err := h.Delete(c.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := h.Delete(c.ID()); !errors.Is(err, ErrConnIsNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("deleted connection must be closed")
	}
}

func TestConnectionHub_Close(t *testing.T) {
	h := NewConnHub(logger.Nop())
	if err := h.Add(NewConn(context.Background(), uuid.New(), nil)); err != nil {
		t.Fatalf("add: %v", err)
	}

	h.Close()
	if h.Len() != 0 {
		t.Fatalf("close must drop every client")
	}
	if err := h.Add(NewConn(context.Background(), uuid.New(), nil)); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected hub closed, got %v", err)
	}
}

func TestConnectionHub_BroadcastDropsDeadClients(t *testing.T) {
	h := NewConnHub(logger.Nop())
	dead := NewConn(context.Background(), uuid.New(), nil)
	if err := h.Add(dead); err != nil {
		t.Fatalf("add: %v", err)
	}

	if n := h.Broadcast(map[string]string{"type": "event"}); n != 0 {
		t.Fatalf("nil socket must not count as delivered, got %d", n)
	}
	if h.Len() != 0 {
		t.Fatalf("failed client must be dropped")
	}
}
