package cache

import "testing"

const echoArgSchema = `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`

func TestSchemaCache_ValidateAccepted(t *testing.T) {
	sc := NewSchemaCache(10)
	if err := sc.Validate(echoArgSchema, `{"text":"hi"}`); err != nil {
		t.Fatalf("expected valid instance to pass, got %v", err)
	}
}

func TestSchemaCache_ValidateRejectsMissingRequired(t *testing.T) {
	sc := NewSchemaCache(10)
	if err := sc.Validate(echoArgSchema, `{}`); err == nil {
		t.Fatal("expected missing required field to fail validation")
	}
}

func TestSchemaCache_CompilesOnceAndCaches(t *testing.T) {
	sc := NewSchemaCache(10)
	_ = sc.Validate(echoArgSchema, `{"text":"a"}`)
	_ = sc.Validate(echoArgSchema, `{"text":"b"}`)

	stats := sc.Stats()
	if stats.Misses != 1 {
		t.Fatalf("expected exactly one compile (cache miss), got %d", stats.Misses)
	}
	if stats.Hits != 1 {
		t.Fatalf("expected second validate to hit the compiled cache, got %d hits", stats.Hits)
	}
	if sc.Len() != 1 {
		t.Fatalf("expected 1 cached schema, got %d", sc.Len())
	}
}

func TestSchemaCache_Invalidate(t *testing.T) {
	sc := NewSchemaCache(10)
	_ = sc.Validate(echoArgSchema, `{"text":"a"}`)
	sc.Invalidate(echoArgSchema)
	if sc.Len() != 0 {
		t.Fatalf("expected cache empty after invalidate, got %d entries", sc.Len())
	}
}

func TestSchemaCache_EvictsOldestOnOverflow(t *testing.T) {
	sc := NewSchemaCache(1)
	schemaA := `{"type":"object"}`
	schemaB := `{"type":"array"}`

	_ = sc.Validate(schemaA, `{}`)
	_ = sc.Validate(schemaB, `[]`)

	if sc.Len() != 1 {
		t.Fatalf("expected capacity to cap cache at 1 entry, got %d", sc.Len())
	}
}
