package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/nxtreaming/mcpcore/internal/authn"
	"github.com/nxtreaming/mcpcore/internal/handlers"
	"github.com/nxtreaming/mcpcore/internal/protocol"
)

type apiKeyParams struct {
	APIKey string `json:"apiKey"`
}

// authenticate extracts credentials from the first request in messages
// and authenticates once for the whole invocation. A ping whose
// authentication fails is relaxed to an anonymous wildcard context,
// since ping is the connection-establishment probe.
func (d *Dispatcher) authenticate(messages []protocol.Message) (authn.Context, error) {
	var apiKey string
	var firstMethod string
	for _, m := range messages {
		if m.Method != "" {
			firstMethod = m.Method
			if len(m.Params) > 0 {
				var p apiKeyParams
				_ = json.Unmarshal(m.Params, &p)
				apiKey = p.APIKey
			}
			break
		}
	}

	ctx, err := d.auth.Authenticate(apiKey)
	if err != nil {
		if firstMethod == "ping" {
			return authn.Anonymous(), nil
		}
		return authn.Context{}, err
	}
	return ctx, nil
}

// handleRequest implements handle_request's decision order: method
// validity, gateway routing, then local dispatch.
func (d *Dispatcher) handleRequest(ctx context.Context, msg protocol.Message, authCtx authn.Context, clientIdentity string) json.RawMessage {
	id := idOrZero(msg)
	notification := msg.IsNotification()
	if notification {
		d.metrics.NotificationSeen()
	}

	if msg.Method == "" {
		if notification {
			return nil
		}
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeInvalidRequest, "Invalid request: missing method")))
	}

	if msg.Method != "ping" {
		limitIdentity := authCtx.Identity
		if limitIdentity == "anonymous" && clientIdentity != "" {
			limitIdentity = clientIdentity
		}
		if d.limiter != nil && !d.limiter.Allow(limitIdentity) {
			if notification {
				return nil
			}
			return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeTooManyRequests, "Too many requests")))
		}
	}

	if d.router != nil {
		uri := extractURI(msg.Params)
		if rule := d.router.Match(msg.Method, uri); rule != nil {
			return d.handleGatewayRequest(msg, rule, id, notification)
		}
	}

	d.metrics.RequestStarted()
	defer d.metrics.RequestFinished()

	resp := d.handleLocal(ctx, msg, authCtx, id)
	if resp == nil {
		return nil
	}
	if notification {
		return nil
	}
	return resp
}

func extractURI(params json.RawMessage) string {
	if len(params) == 0 {
		return ""
	}
	var p struct {
		URI string `json:"uri"`
	}
	_ = json.Unmarshal(params, &p)
	return p.URI
}

func (d *Dispatcher) handleLocal(ctx context.Context, msg protocol.Message, authCtx authn.Context, id json.RawMessage) json.RawMessage {
	var (
		result json.RawMessage
		err    error
	)

	switch msg.Method {
	case "ping":
		result = d.handlers.Ping()
	case "list_resources":
		result, err = d.handlers.ListResources()
	case "list_resource_templates":
		result, err = d.handlers.ListResourceTemplates()
	case "read_resource":
		result, err = d.handlers.ReadResource(ctx, msg.Params, authCtx)
	case "list_tools":
		result, err = d.handlers.ListTools()
	case "call_tool":
		result, err = d.handlers.CallTool(ctx, msg.Params, authCtx)
	case "get_performance_metrics":
		result, err = d.handlers.GetPerformanceMetrics()
	case "reset_performance_metrics":
		result, err = d.handlers.ResetPerformanceMetrics()
	default:
		d.metrics.RequestFailed()
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(protocol.CodeMethodNotFound, "Method not found")))
	}

	if err != nil {
		d.metrics.RequestFailed()
		code := protocol.CodeInternalError
		if he, ok := err.(*handlers.HandlerError); ok {
			code = he.Code
		}
		return mustMarshalResponse(protocol.NewErrorResponse(id, protocol.NewError(code, err.Error())))
	}
	return mustMarshalResponse(protocol.NewResponse(id, result))
}
