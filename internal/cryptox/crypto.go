// Package cryptox contains the small cryptographic helpers mxkeeper needs:
// an argon2id verifier for the application password, and AES-GCM sealing of
// account secrets (passwords, tokens) stored in the local database.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/okatkov/mxkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// SealedValueMinLength is the shortest possible encoded sealed value:
// a 12-byte nonce plus the 16-byte GCM tag for an empty plaintext.
const gcmNonceSize = 12

var ErrMalformedSealedValue = errors.New("malformed sealed value")

// DeriveVerifier computes an argon2id digest of the password under the given
// salt. The digest is stored instead of the password itself; login derives a
// candidate digest and compares in constant time.
func DeriveVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// VerifierMatches reports whether the candidate digest equals the stored one,
// in constant time.
func VerifierMatches(stored, candidate []byte) bool {
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

// SealString encrypts plain with AES-GCM under key and returns a printable
// base64 string of nonce||ciphertext, suitable for a TEXT column. The key
// must be 16, 24 or 32 bytes.
func SealString(plain string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}

	nonce := common.GenerateRandByteArray(gcmNonceSize)
	sealed := aesgcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString. It returns ErrMalformedSealedValue when the
// input is too short to carry a nonce, and the cipher's error when the
// ciphertext fails authentication.
func OpenString(sealed string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	if len(raw) < gcmNonceSize {
		return "", ErrMalformedSealedValue
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}

	plain, err := aesgcm.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plain), nil
}
