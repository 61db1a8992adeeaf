// Package authn authenticates incoming connections and checks permission
// patterns against an authenticated caller's context.
package authn

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"
)

// Mode selects which authentication scheme an Authenticator enforces.
type Mode int

const (
	ModeNone Mode = iota
	ModeAPIKey
)

// Config configures an Authenticator.
type Config struct {
	Mode         Mode
	ConfiguredKey string
}

// Context describes an authenticated (or anonymous) caller.
type Context struct {
	Identity                string
	AllowedResourcePatterns []string
	AllowedToolPatterns     []string
	Expiry                  time.Time // zero means never expires
}

// Anonymous returns a context with wildcard permissions and no expiry,
// used both for require=None and for the ping-bypass relaxation.
func Anonymous() Context {
	return Context{
		Identity:                "anonymous",
		AllowedResourcePatterns: []string{"*"},
		AllowedToolPatterns:     []string{"*"},
	}
}

// Authenticator validates credentials extracted from the first request
// of an incoming message and produces an authenticated Context.
type Authenticator struct {
	cfg Config
}

// New creates an Authenticator from cfg. Modes other than None and
// APIKey are rejected at construction since the core does not implement
// them.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Mode != ModeNone && cfg.Mode != ModeAPIKey {
		return nil, fmt.Errorf("authn: unsupported mode %d", cfg.Mode)
	}
	return &Authenticator{cfg: cfg}, nil
}

// errAuthenticationFailed is returned when credentials are present but
// wrong, or required and absent.
var errAuthenticationFailed = authError{}

type authError struct{}

func (authError) Error() string { return "authentication failed" }

// Authenticate checks apiKey (extracted by the caller from the first
// request's params.apiKey) against the configured mode.
func (a *Authenticator) Authenticate(apiKey string) (Context, error) {
	switch a.cfg.Mode {
	case ModeNone:
		return Anonymous(), nil
	case ModeAPIKey:
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.cfg.ConfiguredKey)) != 1 {
			return Context{}, errAuthenticationFailed
		}
		return Context{
			Identity:                "authenticated_client",
			AllowedResourcePatterns: []string{"*"},
			AllowedToolPatterns:     []string{"*"},
		}, nil
	default:
		return Context{}, errAuthenticationFailed
	}
}

// Expired reports whether ctx's expiry has passed.
func (c Context) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

// CheckResourceAccess reports whether uri is allowed under ctx.
func (c Context) CheckResourceAccess(uri string) bool {
	if c.Expired() {
		return false
	}
	return matchAny(c.AllowedResourcePatterns, uri)
}

// CheckToolAccess reports whether the tool name is allowed under ctx.
func (c Context) CheckToolAccess(name string) bool {
	if c.Expired() {
		return false
	}
	return matchAny(c.AllowedToolPatterns, name)
}

func matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if matchPattern(p, s) {
			return true
		}
	}
	return false
}

// matchPattern implements the one wildcard form the source's matcher
// supports: a trailing "*" matches any string sharing the pattern's
// prefix. Anything else is an exact match. Do not generalize this to
// full glob semantics.
func matchPattern(pattern, s string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, pattern[:len(pattern)-1])
	}
	return pattern == s
}
