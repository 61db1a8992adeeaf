package protocol

import "encoding/json"

// Resource is a named piece of content retrievable by URI. Mutated only
// by server-lifecycle add/remove calls, never by request handling.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourceTemplate is a parameterized URI pattern producing resources on
// demand. The registry matches a URI against a template by the literal
// prefix before the first "{"; no {var} expansion is performed and no
// variable values are passed to the producer.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Description string `json:"description,omitempty"`
}

// ToolParam is one entry of a Tool's ordered input schema.
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Tool is a named, parameterized operation producing content items.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema []ToolParam `json:"-"`
}

// InputSchemaJSON renders the ordered parameter list as a JSON-Schema
// object, the shape list_tools advertises on the wire.
func (t Tool) InputSchemaJSON() json.RawMessage {
	props := make(map[string]any, len(t.InputSchema))
	var required []string
	for _, p := range t.InputSchema {
		entry := map[string]any{"type": p.Type}
		if p.Description != "" {
			entry["description"] = p.Description
		}
		props[p.Name] = entry
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// ContentKind identifies the shape of a ContentItem's payload.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentJSON
	ContentBinary
)

// ContentItem is one piece of a tool's or resource's output. The copies
// ResourceCache stores and hands out are acquired from the ObjectPool and
// released back once serialized onto the wire; items built by producers
// and tool handlers are ordinary allocations, not taken from the pool.
type ContentItem struct {
	Type     ContentKind
	MimeType string
	Data     []byte
}

// Size returns the byte length of the item's payload.
func (c *ContentItem) Size() int { return len(c.Data) }

// Reset clears a ContentItem for reuse by the ObjectPool. It does not
// release the underlying byte slice's capacity — Data is truncated, not
// nilled, so the next acquirer can reuse the backing array.
func (c *ContentItem) Reset() {
	c.Type = ContentText
	c.MimeType = ""
	c.Data = c.Data[:0]
}

// BackendInfo describes one gateway-mode upstream MCP server.
type BackendInfo struct {
	Name           string
	Address        string
	Timeout        int64 // milliseconds; the forwarder takes its deadlines from dispatcher.Config, not from this field
	MethodPrefix   string
	URIPrefix      string
	ConnectTimeout int64 // milliseconds
	MinConns       int
	MaxConns       int
	IdleTimeout    int64 // milliseconds
}
