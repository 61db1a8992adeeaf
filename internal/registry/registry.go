// Package registry holds the server's resources, resource templates,
// and tools: the catalog the list_* and read_resource/call_tool handlers
// consult. Writes are expected only during setup/administration, never
// concurrently with request serving, but are still guarded for safety.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// ResourceProducer yields content items for a concrete URI.
type ResourceProducer func(ctx context.Context, uri string) ([]*protocol.ContentItem, error)

// ToolHandler executes a tool call, given its raw JSON arguments.
type ToolHandler func(ctx context.Context, args []byte) ([]*protocol.ContentItem, bool, error)

type templateEntry struct {
	template protocol.ResourceTemplate
	producer ResourceProducer
}

type toolEntry struct {
	tool    protocol.Tool
	handler ToolHandler
	schema  string // raw JSON-Schema text, "" if the tool declares none
}

// Registry is the server's catalog of static resources, URI templates,
// and callable tools.
type Registry struct {
	mu sync.RWMutex

	resources       map[string]protocol.Resource
	templates       map[string]templateEntry
	tools           map[string]toolEntry
	defaultProducer ResourceProducer
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		resources: make(map[string]protocol.Resource),
		templates: make(map[string]templateEntry),
		tools:     make(map[string]toolEntry),
	}
}

// AddResource registers a static resource by URI.
func (r *Registry) AddResource(res protocol.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.URI] = res
}

// RemoveResource drops a static resource by URI.
func (r *Registry) RemoveResource(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, uri)
}

// AddTemplate registers a parameterized URI template and its producer.
func (r *Registry) AddTemplate(tmpl protocol.ResourceTemplate, producer ResourceProducer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tmpl.URITemplate] = templateEntry{template: tmpl, producer: producer}
}

// RemoveTemplate drops a registered template by its URI template string.
func (r *Registry) RemoveTemplate(uriTemplate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, uriTemplate)
}

// SetDefaultProducer installs the fallback resource producer invoked
// when no template matches a requested URI. Pass nil to clear it.
func (r *Registry) SetDefaultProducer(p ResourceProducer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProducer = p
}

// AddTool registers a callable tool, its handler, and an optional raw
// JSON-Schema text used to validate call arguments.
func (r *Registry) AddTool(tool protocol.Tool, handler ToolHandler, schema string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = toolEntry{tool: tool, handler: handler, schema: schema}
}

// RemoveTool drops a registered tool by name.
func (r *Registry) RemoveTool(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// ListResources returns a snapshot of all registered static resources.
func (r *Registry) ListResources() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out
}

// ListResourceTemplates returns a snapshot of all registered templates.
func (r *Registry) ListResourceTemplates() []protocol.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.ResourceTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.template)
	}
	return out
}

// ListTools returns a snapshot of all registered tools.
func (r *Registry) ListTools() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Tool, 0, len(r.tools))
	for _, te := range r.tools {
		out = append(out, te.tool)
	}
	return out
}

// ResolveResource reports whether uri names a registered static resource.
func (r *Registry) ResolveResource(uri string) (protocol.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	return res, ok
}

// ResolveTemplate finds a registered template matching uri, reporting
// its producer. Templates are kept in a map, so when several match,
// which one is returned is not defined. Templates are matched by the literal prefix
// preceding the template's first "{" placeholder — enough to route
// RFC-6570-style single-level templates without pulling in a full
// template-expansion library for a feature the source does not exercise
// beyond prefix dispatch.
func (r *Registry) ResolveTemplate(uri string) (ResourceProducer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		prefix := t.template.URITemplate
		if idx := strings.IndexByte(prefix, '{'); idx >= 0 {
			prefix = prefix[:idx]
		}
		if prefix != "" && strings.HasPrefix(uri, prefix) {
			return t.producer, true
		}
	}
	return nil, false
}

// DefaultProducer returns the fallback producer, or nil if unset.
func (r *Registry) DefaultProducer() ResourceProducer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultProducer
}

// ResolveTool finds a registered tool by exact name.
func (r *Registry) ResolveTool(name string) (protocol.Tool, ToolHandler, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	te, ok := r.tools[name]
	if !ok {
		return protocol.Tool{}, nil, "", false
	}
	return te.tool, te.handler, te.schema, true
}
