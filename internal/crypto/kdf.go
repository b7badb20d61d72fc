package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"cachet/internal/domain"
)

// HKDF expands ikm under salt and a context label into one 256-bit key
// (RFC 5869, SHA-256). Distinct labels yield independent outputs.
func HKDF(ikm, salt []byte, label string) (out domain.SymmetricKey) {
	r := hkdf.New(sha256.New, ikm, salt, []byte(label))
	_, _ = io.ReadFull(r, out[:])
	return out
}

// HMACExpand derives one child key from key under a single-byte label,
// the message-authentication-style expansion used by chain ratchets.
func HMACExpand(key domain.SymmetricKey, label byte) (out domain.SymmetricKey) {
	h := hmac.New(sha256.New, key.Slice())
	h.Write([]byte{label})
	copy(out[:], h.Sum(nil))
	return out
}
