package transport

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// HTTPStream serves one JSON-RPC message per POST request: the request
// body is the message, the response body is the reply. Notifications
// (handler returns nil) answer with 202 Accepted and no body, matching
// the "streamable HTTP" shape used by MCP clients that speak plain
// request/response instead of a persistent socket.
type HTTPStream struct {
	handler Handler
	log     *slog.Logger
	maxBody int64
}

// NewHTTPStream creates a streamable-HTTP transport. maxBody bounds the
// request body size; zero means 4MiB.
func NewHTTPStream(handler Handler, log *slog.Logger, maxBody int64) *HTTPStream {
	if log == nil {
		log = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = 4 << 20
	}
	return &HTTPStream{handler: handler, log: log, maxBody: maxBody}
}

// ServeHTTP implements http.Handler.
func (h *HTTPStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		h.log.Warn("httpstream: read body failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxBody {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	identity := r.RemoteAddr
	if key := r.Header.Get("X-API-Key"); key != "" {
		identity = key
	}

	resp, err := h.handler(r.Context(), body, identity)
	if err != nil {
		h.log.Error("httpstream: handler error", "request_id", requestID, "remote", r.RemoteAddr, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}
