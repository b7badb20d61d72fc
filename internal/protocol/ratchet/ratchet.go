package ratchet

import (
	"cachet/internal/crypto"
	"cachet/internal/domain"
)

// Context labels for the root KDF. Distinct labels keep the two outputs
// of a DH ratchet step independent.
const (
	rootLabel  = "cachet/v1 ratchet root"
	chainLabel = "cachet/v1 ratchet chain"
)

// Single-byte labels for the chain expansion, Signal convention.
const (
	messageKeyLabel = 0x01
	chainKeyLabel   = 0x02
)

// StepRoot performs one DH ratchet step: it mixes a fresh Diffie-Hellman
// output into the root key and returns the advanced root key together
// with the seed of the next sending or receiving chain.
//
// Deterministic given its inputs. Callers must never derive from the
// same (root, dhOut) pair twice without advancing state.
func StepRoot(root domain.SymmetricKey, dhOut [32]byte) (newRoot, chainKey domain.SymmetricKey) {
	newRoot = crypto.HKDF(dhOut[:], root.Slice(), rootLabel)
	chainKey = crypto.HKDF(dhOut[:], root.Slice(), chainLabel)
	return newRoot, chainKey
}

// StepChain performs one symmetric ratchet step, deriving the next chain
// key and a one-use message key from the current chain key. The caller
// must discard the input chain key immediately afterwards.
func StepChain(ck domain.SymmetricKey) (nextCK, messageKey domain.SymmetricKey) {
	messageKey = crypto.HMACExpand(ck, messageKeyLabel)
	nextCK = crypto.HMACExpand(ck, chainKeyLabel)
	return nextCK, messageKey
}
