package dispatcher

import (
	"encoding/json"
	"errors"

	"github.com/nxtreaming/mcpcore/internal/gateway"
	"github.com/nxtreaming/mcpcore/internal/protocol"
	"github.com/nxtreaming/mcpcore/internal/routing"
)

// handleGatewayRequest forwards msg verbatim to the backend matched by
// rule, returning the backend's raw response bytes as the result — the
// response is never reparsed, so the id the backend echoes is exactly
// what reaches the original caller.
func (d *Dispatcher) handleGatewayRequest(msg protocol.Message, rule *routing.Rule, id json.RawMessage, notification bool) json.RawMessage {
	if rule.Backend == nil {
		d.metrics.RequestFailed()
		if notification {
			return nil
		}
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeInternalError, "Gateway configuration error")))
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		d.metrics.RequestFailed()
		if notification {
			return nil
		}
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeInternalError, "Internal error")))
	}

	resp, err := d.forwarder.Forward(rule.Backend, raw, d.cfg.ConnectTimeout, d.cfg.SendTimeout, d.cfg.RecvTimeout)
	d.metrics.GatewayForwarded()
	if notification {
		return nil
	}
	if err != nil {
		d.metrics.RequestFailed()
		if errors.Is(err, gateway.ErrBackendUnreachable) {
			return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeInternalError, "Failed to connect to backend service")))
		}
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeTransportError, err.Error())))
	}

	var probe protocol.Message
	if jsonErr := json.Unmarshal(resp, &probe); jsonErr != nil || probe.JSONRPC == "" {
		d.metrics.RequestFailed()
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeInternalError, "Invalid response from backend")))
	}

	return json.RawMessage(resp)
}
