package escrow

import (
	"errors"

	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/util/memzero"
)

const wrapLabel = "cachet/v1 escrow wrap"

// WrappedLen is the size of a wrapped message key: 32 key bytes plus
// the 16-byte GCM tag.
const WrappedLen = 48

var errBadWrapped = errors.New("escrow: wrapped key has wrong length")

// Wrap seals messageKey to the escrow authority. It draws a fresh
// X25519 ephemeral pair, derives a wrapping key from the ephemeral
// shared secret with the authority public key, and returns the
// ephemeral public value together with the sealed key. Only the
// authority's private key can reverse the wrap; the message recipient
// never needs this path.
func Wrap(authority domain.X25519Public, messageKey domain.SymmetricKey, iv domain.IV) (ephemeral domain.X25519Public, wrapped []byte, err error) {
	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return ephemeral, nil, err
	}
	defer memzero.Zero(ephPriv[:])

	shared, err := crypto.DH(ephPriv, authority)
	if err != nil {
		return ephemeral, nil, err
	}
	wrapKey := crypto.HKDF(shared[:], nil, wrapLabel)
	memzero.Zero(shared[:])
	defer memzero.Zero(wrapKey[:])

	wrapped, err = crypto.SealGCM(wrapKey, iv, nil, messageKey.Slice())
	if err != nil {
		return ephemeral, nil, err
	}
	return ephPub, wrapped, nil
}

// Recover is the authority-side inverse of Wrap.
func Recover(authority domain.X25519Private, ephemeral domain.X25519Public, wrapped []byte, iv domain.IV) (domain.SymmetricKey, error) {
	if len(wrapped) != WrappedLen {
		return domain.SymmetricKey{}, errBadWrapped
	}
	shared, err := crypto.DH(authority, ephemeral)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	wrapKey := crypto.HKDF(shared[:], nil, wrapLabel)
	memzero.Zero(shared[:])
	defer memzero.Zero(wrapKey[:])

	raw, err := crypto.OpenGCM(wrapKey, iv, nil, wrapped)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	var mk domain.SymmetricKey
	copy(mk[:], raw)
	memzero.Zero(raw)
	return mk, nil
}
