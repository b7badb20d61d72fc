// Package escrow re-encrypts per-message keys under a fixed third-party
// public key, ElGamal style: a fresh ephemeral value per message and a
// symmetric seal of the key under the ephemeral shared secret.
package escrow
