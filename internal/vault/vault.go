// Package vault seals small secrets, such as OAuth token blobs, before they
// are written to session storage.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrEmptySecret       = errors.New("secret must not be empty")
)

const keyInfo = "tunesmith session token v1"

type Vault struct {
	aead cipher.AEAD
}

// New derives a 256-bit XChaCha20-Poly1305 key from secret with HKDF-SHA256.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	_, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *Vault) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < v.aead.NonceSize()+v.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]

	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	return plaintext, nil
}
