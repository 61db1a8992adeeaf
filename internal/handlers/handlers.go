// Package handlers implements the local JSON-RPC methods the dispatcher
// calls once routing has passed: ping, the resource/tool listing and
// invocation methods, and the performance metrics pair. read_resource
// and call_tool run their own permission checks against the caller's
// authn.Context.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nxtreaming/mcpcore/internal/authn"
	"github.com/nxtreaming/mcpcore/internal/cache"
	"github.com/nxtreaming/mcpcore/internal/metrics"
	"github.com/nxtreaming/mcpcore/internal/pool"
	"github.com/nxtreaming/mcpcore/internal/protocol"
	"github.com/nxtreaming/mcpcore/internal/registry"
)

// Handlers bundles the collaborators every local method needs.
type Handlers struct {
	Registry    *registry.Registry
	Resources   *cache.ResourceCache
	Schemas     *cache.SchemaCache
	Objects     *pool.ObjectPool
	Metrics     *metrics.Metrics
}

// New builds a Handlers bundle.
func New(reg *registry.Registry, resources *cache.ResourceCache, schemas *cache.SchemaCache, objects *pool.ObjectPool, m *metrics.Metrics) *Handlers {
	return &Handlers{Registry: reg, Resources: resources, Schemas: schemas, Objects: objects, Metrics: m}
}

// Ping answers the connection probe.
func (h *Handlers) Ping() json.RawMessage {
	return json.RawMessage(`{"message":"pong"}`)
}

type listResourcesResult struct {
	Resources []protocol.Resource `json:"resources"`
}

// ListResources returns every registered static resource.
func (h *Handlers) ListResources() (json.RawMessage, error) {
	res := h.Registry.ListResources()
	if res == nil {
		res = []protocol.Resource{}
	}
	return json.Marshal(listResourcesResult{Resources: res})
}

type listTemplatesResult struct {
	ResourceTemplates []protocol.ResourceTemplate `json:"resourceTemplates"`
}

// ListResourceTemplates returns every registered resource template.
func (h *Handlers) ListResourceTemplates() (json.RawMessage, error) {
	tmpls := h.Registry.ListResourceTemplates()
	if tmpls == nil {
		tmpls = []protocol.ResourceTemplate{}
	}
	return json.Marshal(listTemplatesResult{ResourceTemplates: tmpls})
}

type toolListing struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type listToolsResult struct {
	Tools []toolListing `json:"tools"`
}

// ListTools returns every registered tool, with its input schema
// rendered as JSON-Schema.
func (h *Handlers) ListTools() (json.RawMessage, error) {
	tools := h.Registry.ListTools()
	out := make([]toolListing, 0, len(tools))
	for _, t := range tools {
		entry := toolListing{Name: t.Name, Description: t.Description}
		if len(t.InputSchema) > 0 {
			entry.InputSchema = t.InputSchemaJSON()
		}
		out = append(out, entry)
	}
	return json.Marshal(listToolsResult{Tools: out})
}

// HandlerError is an error tagged with the JSON-RPC code it should
// surface as, so callers don't need a type switch to pick a code.
type HandlerError struct {
	Code    int
	Message string
}

func (e *HandlerError) Error() string { return e.Message }

func errf(code int, format string, args ...any) *HandlerError {
	return &HandlerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

type readResourceResult struct {
	Contents []resourceContent `json:"contents"`
}

// ReadResource implements the full read_resource pipeline: cache lookup,
// template routing, default handler, cache population, response build.
// ctx carries cancellation for the producer call; the uri is checked
// against authCtx's resource patterns here before any lookup.
func (h *Handlers) ReadResource(ctx context.Context, rawParams json.RawMessage, authCtx authn.Context) (json.RawMessage, error) {
	var params readResourceParams
	if err := json.Unmarshal(rawParams, &params); err != nil || params.URI == "" {
		return nil, errf(protocol.CodeInvalidParams, "Invalid params: uri is required")
	}
	if !authCtx.CheckResourceAccess(params.URI) {
		return nil, errf(protocol.CodeForbidden, "Access denied to resource")
	}

	if handles, ok := h.Resources.Get(h.Objects, params.URI); ok {
		h.Metrics.CacheHit()
		return buildResourceResponse(params.URI, handles)
	}
	h.Metrics.CacheMiss()

	items, err := h.produceResource(ctx, params.URI)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errf(protocol.CodeResourceNotFound, "Resource not found: %s", params.URI)
	}

	ttl := ttlFor(items)
	_ = h.Resources.Put(h.Objects, params.URI, items, ttl)

	return buildResourceResponseFromItems(params.URI, items)
}

func (h *Handlers) produceResource(ctx context.Context, uri string) ([]*protocol.ContentItem, error) {
	if producer, ok := h.Registry.ResolveTemplate(uri); ok {
		items, err := producer(ctx, uri)
		if err != nil {
			return nil, errf(protocol.CodeInternalError, "resource producer failed: %v", err)
		}
		return items, nil
	}
	if producer := h.Registry.DefaultProducer(); producer != nil {
		items, err := producer(ctx, uri)
		if err != nil {
			return nil, errf(protocol.CodeInternalError, "resource producer failed: %v", err)
		}
		return items, nil
	}
	if _, ok := h.Registry.ResolveResource(uri); ok {
		return nil, errf(protocol.CodeInternalError, "resource %s has no content handler", uri)
	}
	return nil, nil
}

func ttlFor(items []*protocol.ContentItem) time.Duration {
	for _, it := range items {
		if it.Type == protocol.ContentBinary {
			return time.Hour
		}
	}
	return 5 * time.Minute
}

func buildResourceResponse(uri string, handles []*pool.Handle) (json.RawMessage, error) {
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()
	contents := make([]resourceContent, 0, len(handles))
	for _, h := range handles {
		item := h.Item()
		c := resourceContent{URI: uri, MimeType: item.MimeType}
		if item.Type == protocol.ContentText {
			c.Text = string(item.Data)
		}
		contents = append(contents, c)
	}
	return json.Marshal(readResourceResult{Contents: contents})
}

func buildResourceResponseFromItems(uri string, items []*protocol.ContentItem) (json.RawMessage, error) {
	contents := make([]resourceContent, 0, len(items))
	for _, item := range items {
		c := resourceContent{URI: uri, MimeType: item.MimeType}
		if item.Type == protocol.ContentText {
			c.Text = string(item.Data)
		}
		contents = append(contents, c)
	}
	return json.Marshal(readResourceResult{Contents: contents})
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolContent struct {
	Type     string `json:"type"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

type callToolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

// CallTool validates the tool name against auth_ctx, validates arguments
// against the tool's registered schema (if any), invokes its handler,
// and packages the result.
func (h *Handlers) CallTool(ctx context.Context, rawParams json.RawMessage, authCtx authn.Context) (json.RawMessage, error) {
	var params callToolParams
	if err := json.Unmarshal(rawParams, &params); err != nil || params.Name == "" {
		return nil, errf(protocol.CodeInvalidParams, "Invalid params: name is required")
	}
	if !authCtx.CheckToolAccess(params.Name) {
		return nil, errf(protocol.CodeForbidden, "Access denied to tool")
	}

	tool, handler, schema, ok := h.Registry.ResolveTool(params.Name)
	if !ok {
		return nil, errf(protocol.CodeMethodNotFound, "Tool not found: %s", params.Name)
	}
	_ = tool

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if schema != "" {
		if err := h.Schemas.Validate(schema, string(args)); err != nil {
			return nil, errf(protocol.CodeInvalidParams, "Invalid arguments: %v", err)
		}
	}

	items, isError, err := handler(ctx, args)
	if err != nil {
		return nil, errf(protocol.CodeInternalError, "tool execution failed: %v", err)
	}

	content := make([]toolContent, 0, len(items))
	for _, item := range items {
		tc := toolContent{MimeType: item.MimeType}
		switch item.Type {
		case protocol.ContentText, protocol.ContentJSON:
			tc.Type = "text"
			tc.Text = string(item.Data)
		default:
			tc.Type = "binary"
		}
		content = append(content, tc)
	}
	return json.Marshal(callToolResult{Content: content, IsError: isError})
}

type successResult struct {
	Success bool `json:"success"`
}

// GetPerformanceMetrics returns the current counter snapshot. Schema
// cache hit/miss counts come straight from the schema cache itself
// rather than a duplicate pair of request-path counters, since whether
// a schema was already compiled is exactly what SchemaCache already
// tracks.
func (h *Handlers) GetPerformanceMetrics() (json.RawMessage, error) {
	snap := h.Metrics.Snapshot()
	schemaStats := h.Schemas.Stats()
	snap.SchemaCacheHits = schemaStats.Hits
	snap.SchemaCacheMisses = schemaStats.Misses
	return json.Marshal(snap)
}

// ResetPerformanceMetrics zeroes the counters and reports success.
func (h *Handlers) ResetPerformanceMetrics() (json.RawMessage, error) {
	h.Metrics.Reset()
	return json.Marshal(successResult{Success: true})
}
