// Package crypto encrypts OAuth tokens at rest with AES-256-GCM.
//
// Values written by Encrypt carry a version prefix so a store can hold a mix
// of encrypted and legacy plaintext rows: Decrypt returns unprefixed values
// unchanged.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"ghl-oauth-manager/internal/common/errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptedPrefix  = "enc:v1:"
	kdfSalt          = "ghl-oauth-manager-token-salt"
	kdfIterations    = 10000
	derivedKeyLength = 32
)

// TokenCipher is what the installation stores use to protect secrets
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ConfigEncryptor handles AES-256-GCM encryption. Safe for concurrent use.
type ConfigEncryptor struct {
	aead cipher.AEAD
}

// NewConfigEncryptor derives a 32 byte key from key with PBKDF2.
func NewConfigEncryptor(key string) (*ConfigEncryptor, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	derivedKey := pbkdf2.Key([]byte(key), []byte(kdfSalt), kdfIterations, derivedKeyLength, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &ConfigEncryptor{aead: gcm}, nil
}

// Encrypt returns "enc:v1:" + base64(nonce || ciphertext). Empty input stays empty.
func (e *ConfigEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered data or a wrong key is an error.
func (e *ConfigEncryptor) Decrypt(ciphertext string) (string, error) {
	if !IsEncrypted(ciphertext) {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, encryptedPrefix))
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether s was produced by Encrypt
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, encryptedPrefix)
}

// PlainCipher stores values as-is. Used when no encryption key is configured.
type PlainCipher struct{}

func (PlainCipher) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt cannot recover encrypted values without a key and says so.
func (PlainCipher) Decrypt(ciphertext string) (string, error) {
	if IsEncrypted(ciphertext) {
		return "", errors.ConfigError("stored token is encrypted but CONFIG_ENCRYPTION_KEY is not set")
	}
	return ciphertext, nil
}

// NewTokenCipher returns an encryptor for a non-empty key, PlainCipher otherwise
func NewTokenCipher(key string) (TokenCipher, error) {
	if key == "" {
		return PlainCipher{}, nil
	}
	return NewConfigEncryptor(key)
}
