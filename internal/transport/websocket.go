package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocket serves one JSON-RPC message per frame over a single HTTP
// endpoint. Each accepted connection runs its own read loop, and replies
// are written from that same loop, so a connection never has the
// concurrent writers gorilla/websocket forbids.
type WebSocket struct {
	handler  Handler
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocket creates a WebSocket transport. origin checking is left
// permissive since the source has no browser-facing CORS policy of its
// own; callers embedding this in a larger HTTP server should wrap
// ServeHTTP with whatever origin policy they need.
func NewWebSocket(handler Handler, log *slog.Logger) *WebSocket {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocket{
		handler: handler,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves JSON-RPC messages over the
// resulting connection until the client disconnects.
func (w *WebSocket) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	identity := conn.RemoteAddr().String()
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Warn("websocket: read failed", "remote", identity, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage || len(data) == 0 {
			continue
		}

		resp, err := w.handler(ctx, data, identity)
		if err != nil {
			w.log.Error("websocket: handler error", "remote", identity, "error", err)
			continue
		}
		if resp == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
			w.log.Warn("websocket: write failed", "remote", identity, "error", err)
			return
		}
	}
}
