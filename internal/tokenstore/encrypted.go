package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltKey       = "_salt"
	saltSize      = 32
	keyIterations = 100000
)

// Encrypted seals every value with AES-GCM before handing it to the wrapped
// backend. The key is derived from a passphrase with PBKDF2; the salt lives in
// the wrapped backend next to the data.
type Encrypted struct {
	inner Backend
	aead  cipher.AEAD
}

// NewEncrypted wraps inner with a passphrase-derived key.
func NewEncrypted(inner Backend, passphrase string) (*Encrypted, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase cannot be empty")
	}

	salt, err := loadOrCreateSalt(inner)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, keyIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encrypted{inner: inner, aead: gcm}, nil
}

func loadOrCreateSalt(b Backend) ([]byte, error) {
	salt, err := b.Get(saltKey)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}
	if err := b.Set(saltKey, salt); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

func (e *Encrypted) Get(key string) ([]byte, error) {
	data, err := e.inner.Get(key)
	if err != nil {
		return nil, err
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrCorrupt
	}
	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

func (e *Encrypted) Set(key string, value []byte) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.inner.Set(key, e.aead.Seal(nonce, nonce, value, []byte(key)))
}

func (e *Encrypted) Delete(key string) error {
	return e.inner.Delete(key)
}

func (e *Encrypted) Close() error {
	return e.inner.Close()
}
