// Package dispatcher implements the top-level message handling loop: it
// parses a single message or a batch, authenticates once per invocation,
// dispatches each element to either the gateway or a local handler, and
// assembles the wire response.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxtreaming/mcpcore/internal/authn"
	"github.com/nxtreaming/mcpcore/internal/gateway"
	"github.com/nxtreaming/mcpcore/internal/handlers"
	"github.com/nxtreaming/mcpcore/internal/metrics"
	"github.com/nxtreaming/mcpcore/internal/protocol"
	"github.com/nxtreaming/mcpcore/internal/routing"
)

// Config bounds the dispatcher's message handling.
type Config struct {
	MaxMessageSize int
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	RecvTimeout    time.Duration
}

// Dispatcher is the server's single entry point for wire bytes.
type Dispatcher struct {
	cfg           Config
	auth          *authn.Authenticator
	limiter       *authn.RateLimiter
	router        *routing.Router
	forwarder     *gateway.Forwarder
	handlers      *handlers.Handlers
	metrics       *metrics.Metrics
	log           *slog.Logger

	shuttingDown  atomic.Bool
	activeCount   atomic.Int64
	shutdownCond  *sync.Cond
	shutdownMu    sync.Mutex
}

// New assembles a Dispatcher from its collaborators.
func New(cfg Config, auth *authn.Authenticator, limiter *authn.RateLimiter, router *routing.Router, forwarder *gateway.Forwarder, h *handlers.Handlers, m *metrics.Metrics, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		cfg:       cfg,
		auth:      auth,
		limiter:   limiter,
		router:    router,
		forwarder: forwarder,
		handlers:  h,
		metrics:   m,
		log:       log,
	}
	d.shutdownCond = sync.NewCond(&d.shutdownMu)
	return d
}

// Stop marks the dispatcher as shutting down. Safe to call more than
// once; the second and later calls are no-ops.
func (d *Dispatcher) Stop() {
	d.shuttingDown.CompareAndSwap(false, true)
	d.shutdownMu.Lock()
	d.shutdownCond.Broadcast()
	d.shutdownMu.Unlock()
}

// WaitForDrain blocks until every in-flight HandleMessage call has
// returned, or timeout elapses (0 means wait forever). It waits on the
// shutdown condition, which is broadcast every time the active-request
// counter reaches zero; a background ticker rebroadcasts periodically
// so a caller with a deadline never blocks past it even if no request
// happens to finish exactly at zero during that window.
func (d *Dispatcher) WaitForDrain(timeout time.Duration) bool {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.shutdownMu.Lock()
				d.shutdownCond.Broadcast()
				d.shutdownMu.Unlock()
			}
		}
	}()

	deadline := time.Now().Add(timeout)
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()
	for d.activeCount.Load() > 0 {
		if timeout > 0 && time.Now().After(deadline) {
			return false
		}
		d.shutdownCond.Wait()
	}
	return true
}

// HandleMessage is the dispatcher's single entry point: raw bytes in,
// response bytes (possibly nil) out. Per §4.1, a batch producing zero
// response elements emits no bytes at all, and a single message always
// produces a single JSON object rather than a one-element array.
func (d *Dispatcher) HandleMessage(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error) {
	if d.shuttingDown.Load() {
		return marshalError(protocol.IDZero, protocol.CodeServerShuttingDown, "Server shutting down"), nil
	}

	d.activeCount.Add(1)
	defer func() {
		if d.activeCount.Add(-1) == 0 && d.shuttingDown.Load() {
			d.shutdownMu.Lock()
			d.shutdownCond.Broadcast()
			d.shutdownMu.Unlock()
		}
	}()

	if d.cfg.MaxMessageSize > 0 && len(raw) > d.cfg.MaxMessageSize {
		return marshalError(protocol.IDZero, protocol.CodeInvalidRequest, "Message exceeds maximum size"), nil
	}

	isBatch, elements, parseErr := parseMessages(raw)
	if parseErr != nil {
		return marshalError(protocol.IDZero, protocol.CodeParseError, "Parse error"), nil
	}
	if isBatch && len(elements) == 0 {
		return marshalError(protocol.IDZero, protocol.CodeInvalidRequest, "Invalid request: empty batch"), nil
	}

	validMessages := make([]protocol.Message, 0, len(elements))
	for _, el := range elements {
		if el.valid {
			validMessages = append(validMessages, el.msg)
		}
	}

	authCtx, authErr := d.authenticate(validMessages)
	if authErr != nil {
		firstID := protocol.IDZero
		if len(validMessages) > 0 && len(validMessages[0].ID) > 0 {
			firstID = validMessages[0].ID
		}
		return marshalError(firstID, protocol.CodeInvalidRequest, "Authentication failed"), nil
	}

	if isBatch {
		d.metrics.BatchSeen()
	}

	responses := make([]json.RawMessage, 0, len(elements))
	for _, el := range elements {
		if !el.valid {
			responses = append(responses, mustMarshalResponse(protocol.NewErrorResponse(protocol.IDZero, protocol.NewError(protocol.CodeInvalidRequest, "Invalid request"))))
			continue
		}
		resp := d.dispatchOne(ctx, el.msg, authCtx, clientIdentity)
		if resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return nil, nil
	}
	if !isBatch {
		return responses[0], nil
	}
	return json.Marshal(responses)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, msg protocol.Message, authCtx authn.Context, clientIdentity string) json.RawMessage {
	switch {
	case msg.IsIncomingResponse():
		return nil
	case msg.Method == "":
		return mustMarshalResponse(protocol.NewErrorResponse(idOrZero(msg), protocol.NewError(protocol.CodeInvalidRequest, "Invalid request")))
	case msg.IsRequest(), msg.IsNotification():
		return d.handleRequest(ctx, msg, authCtx, clientIdentity)
	default:
		return mustMarshalResponse(protocol.NewErrorResponse(idOrZero(msg), protocol.NewError(protocol.CodeInvalidRequest, "Invalid request")))
	}
}

func idOrZero(msg protocol.Message) json.RawMessage {
	if len(msg.ID) > 0 {
		return msg.ID
	}
	return protocol.IDZero
}

func marshalError(id json.RawMessage, code int, message string) []byte {
	b, _ := json.Marshal(protocol.NewErrorResponse(id, protocol.NewError(code, message)))
	return b
}

func mustMarshalResponse(r *protocol.Response) json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return marshalError(r.ID, protocol.CodeInternalError, "Internal error")
	}
	return b
}

// element is one decoded batch (or single-message) entry. valid is false
// when the entry was well-formed JSON but not a JSON-RPC message object
// (e.g. a bare number or string inside a batch array) — msg is then
// unset and the caller answers that entry with its own error response
// instead of failing the whole call.
type element struct {
	msg   protocol.Message
	valid bool
}

// parseMessages decodes raw as either a single message or a top-level
// array of messages. isBatch distinguishes the two for response shaping.
// A batch's elements are decoded one at a time so that one malformed
// element doesn't abort the whole batch: each array entry is kept as
// raw JSON first and only then unmarshaled into protocol.Message,
// marking that entry invalid (rather than failing parseMessages) on
// mismatch.
func parseMessages(raw []byte) (isBatch bool, elements []element, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false, nil, errEmptyMessage
	}
	if trimmed[0] == '[' {
		var rawElements []json.RawMessage
		if err := json.Unmarshal(trimmed, &rawElements); err != nil {
			return true, nil, err
		}
		elements = make([]element, len(rawElements))
		for i, re := range rawElements {
			var m protocol.Message
			if err := json.Unmarshal(re, &m); err != nil {
				continue
			}
			elements[i] = element{msg: m, valid: true}
		}
		return true, elements, nil
	}
	var one protocol.Message
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return false, nil, err
	}
	return false, []element{{msg: one, valid: true}}, nil
}

var errEmptyMessage = jsonSyntaxError("empty message")

type jsonSyntaxError string

func (e jsonSyntaxError) Error() string { return string(e) }
