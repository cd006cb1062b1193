package wshandler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	ws "github.com/Temutjin2k/dispatch-ops/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MessageWelcome = "welcome"
	MessageEvent   = "event"
)

// Message is what manager clients receive.
type Message struct {
	Type  string        `json:"type"`
	Event *models.Event `json:"event,omitempty"`
	At    time.Time     `json:"at"`
}

// ManagerFeed streams committed domain events to connected managers. Every
// browser tab is a separate connection.
type ManagerFeed struct {
	hub         *ws.ConnectionHub
	upgrader    websocket.Upgrader
	serviceName string
	l           logger.Logger
}

// NewManagerFeed accepts any origin when allowedOrigins is empty.
func NewManagerFeed(hub *ws.ConnectionHub, serviceName string, allowedOrigins []string, l logger.Logger) *ManagerFeed {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &ManagerFeed{
		hub:         hub,
		serviceName: serviceName,
		l:           l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Serve upgrades the request and blocks until the client disconnects.
// The route must only be reachable by managers.
func (h *ManagerFeed) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_manager_feed")

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), uuid.New(), c)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register websocket connection", err)
		_ = conn.Close()
		return
	}

	gauge := metrics.WebSocketConnectionsGauge.WithLabelValues(h.serviceName)
	gauge.Inc()
	defer gauge.Dec()

	h.l.Info(ctx, "manager connected", "conn_id", conn.ID().String())

	if err := conn.Send(Message{Type: MessageWelcome, At: time.Now().UTC()}); err != nil {
		h.l.Warn(ctx, "failed to greet manager", "error", err.Error())
	}

	err = conn.Listen(nil)
	_ = h.hub.Delete(conn.ID())

	h.l.Info(ctx, "manager disconnected", "conn_id", conn.ID().String(), "reason", err.Error())
}

// Publish broadcasts e to every connected manager. A feed without listeners
// is not an error.
func (h *ManagerFeed) Publish(ctx context.Context, e models.Event) error {
	n := h.hub.Broadcast(Message{Type: MessageEvent, Event: &e, At: time.Now().UTC()})
	h.l.Debug(ctx, "event pushed to managers", "event_type", e.Type.String(), "receivers", n)
	return nil
}

// Close disconnects every manager.
func (h *ManagerFeed) Close() {
	h.hub.Close()
}
