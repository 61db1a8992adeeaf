package routing

import (
	"testing"

	"github.com/nxtreaming/mcpcore/internal/protocol"
)

func TestRouter_MatchByMethodPrefix(t *testing.T) {
	backend := &protocol.BackendInfo{Name: "billing"}
	r := New([]Rule{{MethodPrefix: "billing.", Backend: backend}})

	got := r.Match("billing.charge", "")
	if got == nil || got.Backend != backend {
		t.Fatalf("expected match on billing.* prefix, got %v", got)
	}

	if r.Match("inventory.list", "") != nil {
		t.Fatal("expected no match for unrelated method")
	}
}

func TestRouter_MatchByURIPrefix(t *testing.T) {
	backend := &protocol.BackendInfo{Name: "files"}
	r := New([]Rule{{URIPrefix: "file://", Backend: backend}})

	if got := r.Match("read_resource", "file:///tmp/a"); got == nil || got.Backend != backend {
		t.Fatal("expected match on file:// uri prefix")
	}
	if r.Match("read_resource", "http://example.com") != nil {
		t.Fatal("expected no match for non-matching uri prefix")
	}
}

func TestRouter_FirstMatchWins(t *testing.T) {
	first := &protocol.BackendInfo{Name: "first"}
	second := &protocol.BackendInfo{Name: "second"}
	r := New([]Rule{
		{MethodPrefix: "tool.", Backend: first},
		{MethodPrefix: "tool.", Backend: second},
	})

	got := r.Match("tool.run", "")
	if got == nil || got.Backend != first {
		t.Fatalf("expected first rule to win, got %v", got)
	}
}

func TestRouter_NoRulesMatchesNothing(t *testing.T) {
	r := New(nil)
	if r.Match("anything", "anything") != nil {
		t.Fatal("expected no match with zero rules")
	}
}

func TestRouter_BothPrefixesMustMatch(t *testing.T) {
	backend := &protocol.BackendInfo{Name: "both"}
	r := New([]Rule{{MethodPrefix: "read_resource", URIPrefix: "s3://", Backend: backend}})

	if r.Match("read_resource", "file:///x") != nil {
		t.Fatal("expected no match when uri prefix fails despite method prefix matching")
	}
	if got := r.Match("read_resource", "s3://bucket/key"); got == nil {
		t.Fatal("expected match when both prefixes satisfied")
	}
}
