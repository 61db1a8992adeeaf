package config

import (
	"fmt"
	"strings"
)

// ValidationError holds all validation failures for a config file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

// validate checks the parsed, defaulted config for correctness.
func validate(cfg *FileConfig) error {
	var errs []string

	names := make(map[string]bool, len(cfg.Backends))
	for i, b := range cfg.Backends {
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("backends[%d]: name is required", i))
		}
		if names[b.Name] {
			errs = append(errs, fmt.Sprintf("backends[%d]: duplicate name %q", i, b.Name))
		}
		names[b.Name] = true
		if b.Address == "" {
			errs = append(errs, fmt.Sprintf("backends[%d]: address is required", i))
		}
		if b.MethodPrefix == "" && b.URIPrefix == "" {
			errs = append(errs, fmt.Sprintf("backends[%d]: at least one of method_prefix or uri_prefix is required", i))
		}
		if b.MinConns > b.MaxConns {
			errs = append(errs, fmt.Sprintf("backends[%d]: min_conns (%d) exceeds max_conns (%d)", i, b.MinConns, b.MaxConns))
		}
	}

	for i, tr := range cfg.TemplateRoutes {
		if tr.URITemplate == "" {
			errs = append(errs, fmt.Sprintf("template_routes[%d]: uri_template is required", i))
		}
		if tr.ProducerName == "" {
			errs = append(errs, fmt.Sprintf("template_routes[%d]: producer is required", i))
		}
	}

	if cfg.RateLimitMax < 0 {
		errs = append(errs, "rate_limit_max must not be negative")
	}
	if cfg.RateLimitMax > 0 && cfg.RateLimitWindowSec <= 0 {
		errs = append(errs, "rate_limit_window_seconds must be positive when rate_limit_max is set")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
