package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"cachet/internal/domain"
)

// Message payloads use AES-256-GCM with an explicit random nonce
// carried in the header, so the nonce travels with the ciphertext and
// both ends authenticate it as part of the header.

// NewIV draws a fresh random AEAD nonce.
func NewIV() (iv domain.IV, err error) {
	_, err = rand.Read(iv[:])
	return iv, err
}

// SealGCM encrypts plaintext under key and iv, authenticating ad.
func SealGCM(key domain.SymmetricKey, iv domain.IV, ad, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv.Slice(), plaintext, ad), nil
}

// OpenGCM decrypts and verifies ciphertext. It fails closed: on a tag
// mismatch no plaintext is returned.
func OpenGCM(key domain.SymmetricKey, iv domain.IV, ad, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, iv.Slice(), ciphertext, ad)
}

func newGCM(key domain.SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Slice())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
