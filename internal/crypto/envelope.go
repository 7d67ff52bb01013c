// internal/crypto/envelope.go (AES-GCM)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// KeySize is the required symmetric key length (AES-256).
	KeySize = 32

	nonceSize = 12 // GCM standard nonce size
)

var (
	// ErrKeyUnconfigured is returned when no (or an invalid) key is supplied.
	// This is a startup-class failure: the owning process must refuse to
	// serve secret traffic rather than fall through to storing plaintext.
	ErrKeyUnconfigured = errors.New("encryption key not configured")

	// ErrIntegrity is returned when a ciphertext fails authentication,
	// either because it was tampered with or the key does not match.
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)

// Envelope performs authenticated encryption of secret payloads with one
// process-wide key. The key is injected at construction and never logged.
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope builds an Envelope from raw key material. It fails fast with
// ErrKeyUnconfigured when the key is absent or not KeySize bytes.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d key bytes, got %d", ErrKeyUnconfigured, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}

	return &Envelope{aead: gcm}, nil
}

// Encrypt seals plaintext with a fresh random nonce, so encrypting the same
// payload twice never yields the same ciphertext. The nonce is prefixed to
// the returned bytes.
func (e *Envelope) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext. The authentication tag is
// verified before any plaintext is returned; failures map to ErrIntegrity.
func (e *Envelope) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, ErrIntegrity
	}

	nonce := ciphertext[:nonceSize]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrIntegrity
	}

	return plaintext, nil
}
