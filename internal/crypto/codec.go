// Package crypto provides authenticated encryption and passcode key
// derivation for the simnote core. Payloads use AES-256-GCM; wrapping
// keys are derived with PBKDF2-SHA256.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	apperrors "github.com/simnote/core/internal/errors"
)

// KeySize is the master key length in bytes (AES-256).
const KeySize = 32

// gcmTagSize is the GCM authentication tag length.
const gcmTagSize = 16

// Encrypt encrypts plaintext with AES-256-GCM under key and returns a
// base64 blob laid out as nonce || authTag || ciphertext. The nonce is
// freshly random on every call.
func Encrypt(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "nonce generation failed", err)
	}

	// Seal produces ciphertext || tag; reorder for storage.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	blob := make([]byte, 0, len(nonce)+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Any failure to authenticate, whether from
// tampering or a wrong key, is reported uniformly as an integrity
// error.
func Decrypt(blob string, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrIntegrity, "ciphertext failed authentication")
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcmTagSize {
		return nil, apperrors.New(apperrors.ErrIntegrity, "ciphertext failed authentication")
	}

	nonce := data[:nonceSize]
	tag := data[nonceSize : nonceSize+gcmTagSize]
	ct := data[nonceSize+gcmTagSize:]

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrIntegrity, "ciphertext failed authentication")
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, apperrors.New(apperrors.ErrValidation, "invalid key length")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "cipher init failed", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "cipher init failed", err)
	}
	return gcm, nil
}
