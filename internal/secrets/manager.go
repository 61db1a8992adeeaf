// Package secrets encrypts named secrets (such as an API key or a
// gateway backend credential) at rest, using age. The server constructs
// a Manager only when optional persistence is enabled, and no server code
// path stores or reads a secret through it.
package secrets

import (
	"context"
	"fmt"
)

// Store is the narrow persistence contract Manager needs: get/put a
// named ciphertext blob. Satisfied by the persist package's sqlite
// store.
type Store interface {
	GetSecret(ctx context.Context, identifier string) ([]byte, error)
	PutSecret(ctx context.Context, identifier string, ciphertext []byte) error
	DeleteSecret(ctx context.Context, identifier string) error
}

// Manager combines a Store with an AgeEncryptor to round-trip plaintext
// secrets through at-rest encryption.
type Manager struct {
	store     Store
	encryptor *AgeEncryptor
}

// NewManager creates a secrets Manager.
func NewManager(s Store, enc *AgeEncryptor) *Manager {
	return &Manager{store: s, encryptor: enc}
}

// Put encrypts plaintext and stores it under identifier (e.g. "api_key"
// or a backend name).
func (m *Manager) Put(ctx context.Context, identifier string, plaintext []byte) error {
	ciphertext, err := m.encryptor.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt secret %s: %w", identifier, err)
	}
	if err := m.store.PutSecret(ctx, identifier, ciphertext); err != nil {
		return fmt.Errorf("store secret %s: %w", identifier, err)
	}
	return nil
}

// Get decrypts and returns the secret stored under identifier.
func (m *Manager) Get(ctx context.Context, identifier string) ([]byte, error) {
	ciphertext, err := m.store.GetSecret(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("load secret %s: %w", identifier, err)
	}
	plaintext, err := m.encryptor.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret %s: %w", identifier, err)
	}
	return plaintext, nil
}

// Delete removes the secret stored under identifier.
func (m *Manager) Delete(ctx context.Context, identifier string) error {
	return m.store.DeleteSecret(ctx, identifier)
}
