package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
)

// AI provider credentials are stored encrypted at rest. The blob layout
// is version(1) || nonce(12) || ciphertext, with AES-256-GCM sealing a
// JSON-encoded value. The version byte leaves room to change the layout
// without breaking rows written under the old one.
const (
	secretBlobVersion = 0x01
	secretNonceSize   = 12
	secretKeySize     = 32
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrInvalidBlobSize    = errors.New("encrypted blob is too small")
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")

	// ErrDecryptionFailed covers both a wrong key and corrupted data;
	// GCM cannot distinguish the two.
	ErrDecryptionFailed = errors.New("failed to decrypt secret blob")
)

// SecretBox seals and opens credential blobs for the settings store.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives the AEAD from a 32-byte key.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != secretKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &SecretBox{aead: aead}, nil
}

// Seal encrypts the JSON encoding of value under a fresh nonce.
func (b *SecretBox) Seal(value any) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	blob := make([]byte, 1+secretNonceSize, 1+secretNonceSize+len(plaintext)+b.aead.Overhead())
	blob[0] = secretBlobVersion
	nonce := blob[1 : 1+secretNonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return b.aead.Seal(blob, nonce, plaintext, nil), nil
}

// Open decrypts a sealed blob and unmarshals it into value, which must
// be a pointer to the target type.
func (b *SecretBox) Open(blob []byte, value any) error {
	if len(blob) < 1+secretNonceSize+b.aead.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != secretBlobVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+secretNonceSize]
	plaintext, err := b.aead.Open(nil, nonce, blob[1+secretNonceSize:], nil)
	if err != nil {
		return ErrDecryptionFailed
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshal decrypted value: %w", err)
	}
	return nil
}

// SealString seals a bare string, the common case for API keys.
func (b *SecretBox) SealString(s string) ([]byte, error) {
	return b.Seal(s)
}

func (b *SecretBox) OpenString(blob []byte) (string, error) {
	var s string
	if err := b.Open(blob, &s); err != nil {
		return "", err
	}
	return s, nil
}
