package registry

import (
	"context"
	"testing"

	"github.com/nxtreaming/mcpcore/internal/protocol"
)

func TestRegistry_ResourceLifecycle(t *testing.T) {
	r := New()
	r.AddResource(protocol.Resource{URI: "static://a", Name: "a"})

	if _, ok := r.ResolveResource("static://a"); !ok {
		t.Fatal("expected resource to resolve after registration")
	}
	r.RemoveResource("static://a")
	if _, ok := r.ResolveResource("static://a"); ok {
		t.Fatal("expected resource to be gone after removal")
	}
}

func TestRegistry_TemplateResolvesByPrefix(t *testing.T) {
	r := New()
	called := false
	producer := func(_ context.Context, uri string) ([]*protocol.ContentItem, error) {
		called = true
		return []*protocol.ContentItem{{Data: []byte(uri)}}, nil
	}
	r.AddTemplate(protocol.ResourceTemplate{URITemplate: "users://{id}"}, producer)

	got, ok := r.ResolveTemplate("users://42")
	if !ok {
		t.Fatal("expected template to match users://42")
	}
	if _, err := got(context.Background(), "users://42"); err != nil {
		t.Fatalf("unexpected error invoking resolved producer: %v", err)
	}
	if !called {
		t.Fatal("expected resolved producer to be the one registered")
	}

	if _, ok := r.ResolveTemplate("orders://1"); ok {
		t.Fatal("expected no match for unrelated uri")
	}
}

func TestRegistry_DefaultProducerFallback(t *testing.T) {
	r := New()
	if r.DefaultProducer() != nil {
		t.Fatal("expected nil default producer initially")
	}
	r.SetDefaultProducer(func(_ context.Context, uri string) ([]*protocol.ContentItem, error) {
		return nil, nil
	})
	if r.DefaultProducer() == nil {
		t.Fatal("expected default producer to be set")
	}
}

func TestRegistry_ToolLifecycle(t *testing.T) {
	r := New()
	handler := func(_ context.Context, args []byte) ([]*protocol.ContentItem, bool, error) {
		return nil, false, nil
	}
	r.AddTool(protocol.Tool{Name: "echo"}, handler, `{"type":"object"}`)

	tool, _, schema, ok := r.ResolveTool("echo")
	if !ok || tool.Name != "echo" || schema == "" {
		t.Fatalf("expected echo tool to resolve with schema, got ok=%v schema=%q", ok, schema)
	}

	r.RemoveTool("echo")
	if _, _, _, ok := r.ResolveTool("echo"); ok {
		t.Fatal("expected tool to be gone after removal")
	}
}

func TestRegistry_ListTools(t *testing.T) {
	r := New()
	r.AddTool(protocol.Tool{Name: "a"}, nil, "")
	r.AddTool(protocol.Tool{Name: "b"}, nil, "")

	tools := r.ListTools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
}
