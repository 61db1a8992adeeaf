// Package gateway forwards JSON-RPC requests verbatim to backend MCP
// servers reached over pooled TCP sockets, framed one message per line.
package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nxtreaming/mcpcore/internal/pool"
	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// ErrBackendUnreachable is returned when the pool cannot produce a
// connected socket before the caller's deadline.
var ErrBackendUnreachable = errors.New("gateway: failed to connect to backend service")

// Forwarder relays raw request bytes to a backend's ConnectionPool and
// returns the backend's raw response bytes unparsed, so the id the
// backend echoes is exactly what the original caller sees.
type Forwarder struct {
	pools map[string]*pool.ConnectionPool
}

// New creates a Forwarder over the given name→pool map, one entry per
// configured backend.
func New(pools map[string]*pool.ConnectionPool) *Forwarder {
	return &Forwarder{pools: pools}
}

// Forward sends raw (the original request bytes, untouched) to backend
// and returns the backend's raw response line. sendTimeout/recvTimeout
// bound the write and the read respectively; connectTimeout bounds the
// pool acquire.
func (f *Forwarder) Forward(backend *protocol.BackendInfo, raw []byte, connectTimeout, sendTimeout, recvTimeout time.Duration) ([]byte, error) {
	p, ok := f.pools[backend.Name]
	if !ok {
		return nil, fmt.Errorf("gateway: no connection pool configured for backend %q", backend.Name)
	}

	var deadline time.Time
	if connectTimeout > 0 {
		deadline = time.Now().Add(connectTimeout)
	}
	handle, err := p.Acquire(context.Background(), deadline)
	if err != nil {
		return nil, ErrBackendUnreachable
	}

	conn := handle.Conn()
	stillValid := false
	defer func() { p.Release(handle, stillValid) }()

	if sendTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
			return nil, fmt.Errorf("gateway: set write deadline: %w", err)
		}
	}
	line := append(append([]byte(nil), raw...), '\n')
	if _, err := conn.Write(line); err != nil {
		return nil, fmt.Errorf("gateway: send to backend %q: %w", backend.Name, err)
	}

	if recvTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(recvTimeout)); err != nil {
			return nil, fmt.Errorf("gateway: set read deadline: %w", err)
		}
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("gateway: recv from backend %q: %w", backend.Name, err)
		}
		return nil, fmt.Errorf("gateway: backend %q closed connection", backend.Name)
	}

	resp := scanner.Bytes()
	out := append([]byte(nil), resp...)
	stillValid = true
	return out, nil
}
