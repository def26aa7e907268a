// Package keystore encrypts private keys at rest and derives addresses from
// them. Plaintext key material never leaves the caller's scope and is never
// logged or persisted.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2 iteration count for passphrase-derived
	// keys.
	KDFIterations = 100_000
	keyLength     = 32
	saltLength    = 16
	nonceLength   = 12
)

var (
	// ErrDecryptionFailed is returned on any authentication failure: wrong
	// passphrase or corrupted ciphertext. No plaintext is ever returned
	// alongside it.
	ErrDecryptionFailed = errors.New("keystore: decryption failed")
	// ErrInvalidPrivateKey is returned for key bytes that are not a valid
	// secp256k1 scalar.
	ErrInvalidPrivateKey = errors.New("keystore: invalid private key")
)

// EncryptedKey is a private key sealed with AES-256-GCM under a
// passphrase-derived key. All byte fields are base64.
type EncryptedKey struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Salt       string `json:"salt"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
}

// DeriveKey runs PBKDF2-SHA256 over the passphrase and salt, producing a
// 256-bit AES key.
func DeriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keyLength, sha256.New)
}

// Encrypt seals privateKey under the passphrase. Each call draws a fresh
// random salt and 96-bit nonce; nonces are never reused across encryptions.
func Encrypt(privateKey []byte, passphrase string) (*EncryptedKey, error) {
	if err := ValidatePrivateKey(privateKey); err != nil {
		return nil, err
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate nonce: %w", err)
	}

	aead, err := newAEAD(DeriveKey(passphrase, salt, KDFIterations))
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, privateKey, nil)

	return &EncryptedKey{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		KDF:        "pbkdf2-sha256",
		Iterations: KDFIterations,
	}, nil
}

// Decrypt opens an EncryptedKey. It fails closed: any tag mismatch or
// malformed field yields ErrDecryptionFailed and no plaintext.
func Decrypt(ek *EncryptedKey, passphrase string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ek.Ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(ek.Nonce)
	if err != nil || len(nonce) != nonceLength {
		return nil, ErrDecryptionFailed
	}
	salt, err := base64.StdEncoding.DecodeString(ek.Salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	iterations := ek.Iterations
	if iterations == 0 {
		iterations = KDFIterations
	}
	aead, err := newAEAD(DeriveKey(passphrase, salt, iterations))
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
