package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/simnote/core/internal/errors"
)

const (
	// SaltSize is the passcode salt length in bytes.
	SaltSize = 16

	// KDFIterations is the PBKDF2 iteration count. Raising it only
	// affects freshly derived wrappings; existing blobs keep working
	// because the salt and wrapped key are re-created together.
	KDFIterations = 100_000
)

// DeriveKey derives a 256-bit wrapping key from a passcode and salt
// using PBKDF2-SHA256.
func DeriveKey(passcode string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passcode), salt, KDFIterations, KeySize, sha256.New)
}

// MakeVerifier returns the stored verification hash for a derived
// wrapping key. The verifier is a function of (passcode, salt) but
// never reveals either; matching it still requires the full KDF.
func MakeVerifier(derivedKey []byte) []byte {
	hash := sha256.Sum256(derivedKey)
	return hash[:]
}

// VerifierMatches compares a candidate verifier in constant time.
func VerifierMatches(stored, candidate []byte) bool {
	if len(stored) != len(candidate) {
		return false
	}
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

// NewSalt returns a fresh random passcode salt.
func NewSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// NewMasterKey returns a fresh random 256-bit master key.
func NewMasterKey() ([]byte, error) {
	return randomBytes(KeySize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "random generation failed", err)
	}
	return b, nil
}

// Zero overwrites key material in place. Callers wipe the master key
// on every lock transition.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
