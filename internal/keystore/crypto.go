// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// EncryptedPrefix marks a stored value as encrypted
// (format: ENC:base64(nonce|ciphertext|tag)).
const EncryptedPrefix = "ENC:"

const (
	// NonceSize is the AES-GCM nonce size (96 bits).
	NonceSize = 12
	// KeySize is the AES-256 key size.
	KeySize = 32
	// SaltSize is the key-derivation salt size.
	SaltSize = 32
	// PBKDF2Iterations follows the OWASP 2023 recommendation for
	// PBKDF2-SHA-256.
	PBKDF2Iterations = 600000
)

var (
	// ErrInvalidCiphertext indicates the ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates decryption failed (wrong key or tampered data).
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// ZeroBytes zeros sensitive byte slices to limit memory disclosure.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// DeriveKey derives an AES-256 key from a secret and salt using
// PBKDF2-SHA-256.
func DeriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// GenerateSalt returns a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// loadOrCreateSalt reads the salt file next to the database, creating it
// with a fresh random salt on first run.
func loadOrCreateSalt(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		if len(data) != SaltSize {
			return nil, fmt.Errorf("salt file %s: unexpected size %d", path, len(data))
		}
		return data, nil
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("write salt file: %w", err)
	}
	return salt, nil
}

// Cipher encrypts and decrypts string values with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the encryption key from secret and salt and prepares
// the AEAD. The derived key is zeroed before returning.
func NewCipher(secret string, salt []byte) (*Cipher, error) {
	key := DeriveKey(secret, salt)
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// EncryptString seals plaintext and returns ENC:base64(nonce|ciphertext).
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return "", ErrInvalidCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < NonceSize {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := c.aead.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
