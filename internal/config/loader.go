// Package config parses the server's YAML configuration file into the
// options named by the configuration surface: pool sizing, cache
// sizing, rate limits, authentication, and gateway backends.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the top-level server configuration file.
type FileConfig struct {
	WorkerCount        int                   `yaml:"worker_count"`
	QueueCapacity      int                   `yaml:"queue_capacity"`
	CacheCapacity      int                   `yaml:"cache_capacity"`
	CacheDefaultTTLSec int                   `yaml:"cache_default_ttl_seconds"`
	SchemaCacheCap     int                   `yaml:"schema_cache_capacity"`
	MaxMessageSize     int                   `yaml:"max_message_size"`
	RateLimitWindowSec int                   `yaml:"rate_limit_window_seconds"`
	RateLimitMax       int                   `yaml:"rate_limit_max"`
	APIKey             string                `yaml:"api_key"`
	Backends           []BackendConfig       `yaml:"backends"`
	TemplateRoutes     []TemplateRouteConfig `yaml:"template_routes"`
	Persistence        *PersistenceConfig    `yaml:"persistence,omitempty"`
}

// BackendConfig describes one gateway-mode upstream and the routing
// rule that sends traffic to it.
type BackendConfig struct {
	Name             string `yaml:"name"`
	Address          string `yaml:"address"`
	MethodPrefix     string `yaml:"method_prefix,omitempty"`
	URIPrefix        string `yaml:"uri_prefix,omitempty"`
	TimeoutMs        int64  `yaml:"timeout_ms"`
	ConnectTimeoutMs int64  `yaml:"connect_timeout_ms"`
	MinConns         int    `yaml:"min_conns"`
	MaxConns         int    `yaml:"max_conns"`
	IdleTimeoutMs    int64  `yaml:"idle_timeout_ms"`
}

// TemplateRouteConfig maps a URI template prefix to a named producer
// the embedding application registers at startup.
type TemplateRouteConfig struct {
	URITemplate  string `yaml:"uri_template"`
	ProducerName string `yaml:"producer"`
}

// PersistenceConfig enables the optional durable store for the API key,
// backend definitions, and rolling audit counters.
type PersistenceConfig struct {
	Path      string `yaml:"path"`
	SecretKey string `yaml:"secret_key_path,omitempty"`
}

// Default values applied when a field is zero in the parsed file.
const (
	DefaultWorkerCount    = 16
	DefaultQueueCapacity  = 1024
	DefaultCacheCapacity  = 1000
	DefaultCacheTTL       = 5 * time.Minute
	DefaultSchemaCacheCap = 256
	DefaultMaxMessageSize = 4 << 20 // 4 MiB
)

// LoadFile reads, parses, defaults, and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses, defaults, and validates YAML config data.
func Parse(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.CacheCapacity == 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.CacheDefaultTTLSec <= 0 {
		cfg.CacheDefaultTTLSec = int(DefaultCacheTTL.Seconds())
	}
	if cfg.SchemaCacheCap == 0 {
		cfg.SchemaCacheCap = DefaultSchemaCacheCap
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	for i := range cfg.Backends {
		b := &cfg.Backends[i]
		if b.MinConns <= 0 {
			b.MinConns = 1
		}
		if b.MaxConns <= 0 {
			b.MaxConns = 8
		}
		if b.ConnectTimeoutMs <= 0 {
			b.ConnectTimeoutMs = 5000
		}
		if b.TimeoutMs <= 0 {
			b.TimeoutMs = 30000
		}
		if b.IdleTimeoutMs <= 0 {
			b.IdleTimeoutMs = 60000
		}
	}
}

// GatewayEnabled reports whether any backend is configured.
func (c *FileConfig) GatewayEnabled() bool { return len(c.Backends) > 0 }

// APIKeyEnabled reports whether ApiKey authentication should be used.
func (c *FileConfig) APIKeyEnabled() bool { return c.APIKey != "" }
