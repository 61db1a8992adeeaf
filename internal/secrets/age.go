package secrets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// AgeEncryptor encrypts and decrypts secret blobs with a single
// X25519 identity, either generated in memory (ephemeral: secrets do
// not survive a restart without persistence enabled) or loaded from an
// operator-supplied identity file.
type AgeEncryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewAgeEncryptor loads an X25519 identity from keyPath if it exists,
// or generates and writes a fresh one there. An empty keyPath generates
// an ephemeral in-memory identity.
func NewAgeEncryptor(keyPath string) (*AgeEncryptor, error) {
	if keyPath == "" {
		id, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generate age identity: %w", err)
		}
		return &AgeEncryptor{identity: id, recipient: id.Recipient()}, nil
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read age identity file: %w", err)
		}
		id, genErr := age.GenerateX25519Identity()
		if genErr != nil {
			return nil, fmt.Errorf("generate age identity: %w", genErr)
		}
		if writeErr := os.WriteFile(keyPath, []byte(id.String()+"\n"), 0o600); writeErr != nil {
			return nil, fmt.Errorf("write age identity file: %w", writeErr)
		}
		return &AgeEncryptor{identity: id, recipient: id.Recipient()}, nil
	}

	line := strings.TrimSpace(firstNonCommentLine(string(data)))
	id, err := age.ParseX25519Identity(line)
	if err != nil {
		return nil, fmt.Errorf("parse age identity file: %w", err)
	}
	return &AgeEncryptor{identity: id, recipient: id.Recipient()}, nil
}

func firstNonCommentLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return trimmed
		}
	}
	return ""
}

// Encrypt returns plaintext encrypted to this encryptor's recipient.
func (e *AgeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("age encrypt write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt reverses Encrypt using this encryptor's identity.
func (e *AgeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return io.ReadAll(r)
}
