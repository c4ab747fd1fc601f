package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Vault encrypts author passwords at rest. The key is derived from the
// configured secret with HKDF-SHA256; ciphertexts carry their own random
// nonce so decryption needs nothing but the vault itself.
type Vault struct {
	aead cipher.AEAD
}

const vaultKeyInfo = "skypress-credential-vault"

var ErrNoEncryptionKey = errors.New("encryption key missing, set SKYPRESS_ENCRYPTION_KEY")

func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrNoEncryptionKey
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(vaultKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving vault key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating aead: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *Vault) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	if len(sealed) < v.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce := sealed[:v.aead.NonceSize()]
	plaintext, err := v.aead.Open(nil, nonce, sealed[v.aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}
