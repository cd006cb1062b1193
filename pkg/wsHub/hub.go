package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// broadcastFanout caps concurrent writes so one slow client does not delay
// everyone by the full write deadline.
const broadcastFanout = 16

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
	ErrDuplicateConn  = errors.New("connection already registered")
	ErrHubClosed      = errors.New("hub is closed")
)

// ConnectionHub tracks live websocket clients by connection id.
type ConnectionHub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*Conn
	closed  bool
	l       logger.Logger
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers c. Ids are unique per connection, so a clash is a caller bug.
func (h *ConnectionHub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[c.ID()]; ok {
		return ErrDuplicateConn
	}
	h.clients[c.ID()] = c
	return nil
}

// Delete unregisters and closes the connection.
func (h *ConnectionHub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	if err := c.Close(); err != nil {
		h.l.Debug(wrap.WithAction(context.Background(), "ws_connection_delete"), "failed to close conn", "conn_id", id.String(), "error", err.Error())
	}
	return nil
}

func (h *ConnectionHub) SendTo(id uuid.UUID, msg any) error {
	c, err := h.GetConn(id)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Broadcast sends msg to every client and drops the ones that fail.
// It returns the number of clients that received it.
func (h *ConnectionHub) Broadcast(msg any) int {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		sent int
	)
	g.SetLimit(broadcastFanout)

	for id, c := range h.Clients() {
		g.Go(func() error {
			if err := c.Send(msg); err != nil {
				h.l.Debug(wrap.WithAction(context.Background(), "ws_broadcast"), "dropping connection", "conn_id", id.String(), "error", err.Error())
				_ = h.Delete(id)
				return nil
			}
			mu.Lock()
			sent++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return sent
}

// Close disconnects everyone and refuses new connections.
func (h *ConnectionHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	h.l.Info(wrap.WithAction(context.Background(), "hub_close"), "websocket connections closed", "count", len(clients))
}

// Clients returns a snapshot.
func (h *ConnectionHub) Clients() map[uuid.UUID]*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[uuid.UUID]*Conn, len(h.clients))
	for id, c := range h.clients {
		out[id] = c
	}
	return out
}

func (h *ConnectionHub) GetConn(id uuid.UUID) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return c, nil
}

func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
