package handshake

import (
	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/util/memzero"
)

const rootLabel = "cachet/v1 handshake"

// RootKeyFunc derives the initial root key shared with a peer before
// the first DH ratchet step. Both ends must compute the same value.
// The default is CertificateRoot; deployments with a richer bootstrap
// (prekey bundles, out-of-band secrets) plug in their own.
type RootKeyFunc func(self domain.Identity, peer domain.Certificate) (domain.SymmetricKey, error)

// CertificateRoot seeds the root key from the static Diffie-Hellman of
// the two identity certificates:
//
//	root = HKDF(X25519(own secret, peer certificate key), label)
//
// DH(a, B) equals DH(b, A), so initiator and responder agree without an
// extra round trip.
func CertificateRoot(self domain.Identity, peer domain.Certificate) (domain.SymmetricKey, error) {
	shared, err := crypto.DH(self.XPriv, peer.ExchangeKey)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	root := crypto.HKDF(shared[:], nil, rootLabel)
	memzero.Zero(shared[:])
	return root, nil
}
