package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// memStore is a trivial in-memory Store for exercising Manager without
// a real database.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) GetSecret(ctx context.Context, identifier string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[identifier]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (s *memStore) PutSecret(ctx context.Context, identifier string, ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[identifier] = ciphertext
	return nil
}

func (s *memStore) DeleteSecret(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, identifier)
	return nil
}

func TestManager_PutGetRoundTrip(t *testing.T) {
	enc, err := NewAgeEncryptor("")
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	m := NewManager(newMemStore(), enc)
	ctx := context.Background()

	if err := m.Put(ctx, "api_key", []byte("s3cr3t")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get(ctx, "api_key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "s3cr3t" {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestManager_Delete(t *testing.T) {
	enc, err := NewAgeEncryptor("")
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	m := NewManager(newMemStore(), enc)
	ctx := context.Background()

	_ = m.Put(ctx, "api_key", []byte("s3cr3t"))
	if err := m.Delete(ctx, "api_key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "api_key"); err == nil {
		t.Fatal("expected get after delete to fail")
	}
}

func TestManager_GetMissingFails(t *testing.T) {
	enc, err := NewAgeEncryptor("")
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	m := NewManager(newMemStore(), enc)
	if _, err := m.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
