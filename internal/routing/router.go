// Package routing matches incoming requests against declared gateway
// backends before the dispatcher falls back to local method handlers.
package routing

import (
	"strings"

	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// Rule describes one gateway routing entry. A rule matches a request if
// its MethodPrefix is a prefix of the request method (when non-empty)
// and its URIPrefix is a prefix of the request's uri parameter (when
// non-empty; the uri parameter is read from any method's params, not
// only read_resource's). A rule with both prefixes
// empty matches everything — callers should avoid declaring one unless
// it is meant as a catch-all.
type Rule struct {
	MethodPrefix string
	URIPrefix    string
	Backend      *protocol.BackendInfo
}

// Router holds an ordered list of rules, evaluated first-match-wins.
type Router struct {
	rules []Rule
}

// New creates a router over rules in declared order.
func New(rules []Rule) *Router {
	return &Router{rules: rules}
}

// Match returns the first rule whose prefixes match method/uri, or nil.
// uri is the request's "uri" parameter when present, "" otherwise.
func (r *Router) Match(method, uri string) *Rule {
	for i := range r.rules {
		rule := &r.rules[i]
		if rule.MethodPrefix != "" && !strings.HasPrefix(method, rule.MethodPrefix) {
			continue
		}
		if rule.URIPrefix != "" && !strings.HasPrefix(uri, rule.URIPrefix) {
			continue
		}
		return rule
	}
	return nil
}
