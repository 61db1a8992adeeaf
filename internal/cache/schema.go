package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaCache holds compiled JSON-Schemas keyed by a hash of their source
// text, evicting least-recently-used schemas once capacity is reached.
// Compilation is delegated to jsonschema.Compiler; the cache only owns
// lookup, storage, and validation dispatch.
type SchemaCache struct {
	mu       sync.Mutex
	entries  map[string]*schemaEntry
	order    *lruList
	capacity int
	stats    Stats
}

type schemaEntry struct {
	id       string
	compiled *jsonschema.Schema
	useCount int64
	node     *lruNode
}

// NewSchemaCache creates a cache holding up to capacity compiled schemas.
func NewSchemaCache(capacity int) *SchemaCache {
	return &SchemaCache{
		entries:  make(map[string]*schemaEntry),
		order:    newLRUList(),
		capacity: capacity,
	}
}

// HashSchema derives the cache key for a schema's source text.
func HashSchema(schemaText string) string {
	sum := sha256.Sum256([]byte(schemaText))
	return hex.EncodeToString(sum[:])
}

// Validate compiles schemaText on first use (caching the result) and
// validates jsonText against it. A compile failure is never cached.
func (c *SchemaCache) Validate(schemaText, jsonText string) error {
	id := HashSchema(schemaText)

	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		c.order.moveToFront(e.node)
		e.useCount++
		c.stats.Hits++
		schema := e.compiled
		c.mu.Unlock()
		return validateJSON(schema, jsonText)
	}
	c.stats.Misses++
	c.mu.Unlock()

	compiled, err := compileSchema(id, schemaText)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	c.mu.Lock()
	if c.capacity > 0 {
		if e, ok := c.entries[id]; ok {
			c.order.moveToFront(e.node)
			e.useCount++
		} else {
			e := &schemaEntry{id: id, compiled: compiled, useCount: 1}
			e.node = c.order.pushFront(id)
			c.entries[id] = e
			for len(c.entries) > c.capacity {
				c.evictOldestLocked()
			}
		}
	}
	c.mu.Unlock()

	return validateJSON(compiled, jsonText)
}

// Invalidate drops a single compiled schema by its source text.
func (c *SchemaCache) Invalidate(schemaText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := HashSchema(schemaText)
	if e, ok := c.entries[id]; ok {
		delete(c.entries, id)
		c.order.remove(e.node)
	}
}

// Len reports the number of cached compiled schemas.
func (c *SchemaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache statistics.
func (c *SchemaCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *SchemaCache) evictOldestLocked() {
	key := c.order.back()
	if key == "" {
		return
	}
	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.order.remove(e.node)
		c.stats.Evictions++
	}
}

func compileSchema(id, schemaText string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	resourceURL := "mem://" + id + ".json"
	if err := compiler.AddResource(resourceURL, strings.NewReader(schemaText)); err != nil {
		return nil, err
	}
	return compiler.Compile(resourceURL)
}

func validateJSON(schema *jsonschema.Schema, jsonText string) error {
	v, err := jsonschema.UnmarshalJSON(strings.NewReader(jsonText))
	if err != nil {
		return fmt.Errorf("decode instance: %w", err)
	}
	return schema.Validate(v)
}
