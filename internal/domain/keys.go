package domain

import "fmt"

// ------------- X25519 -------------

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// IsZero reports whether the key is all zeros (unset).
func (k X25519Public) IsZero() bool { return k == X25519Public{} }

func MustX25519Private(b []byte) X25519Private {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 private: want 32 bytes, got %d", len(b)))
	}
	var out X25519Private
	copy(out[:], b)
	return out
}

func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 public: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// ------------- Ed25519 -------------

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// ------------- Symmetric -------------

// SymmetricKey is a 256-bit chain, root or message key.
type SymmetricKey [32]byte

func (k SymmetricKey) Slice() []byte { return k[:] }

// IV is an AEAD nonce carried on the wire.
type IV [12]byte

func (v IV) Slice() []byte { return v[:] }
