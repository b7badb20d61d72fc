// Package crypto wraps the primitives the protocol layers compose:
// X25519 key exchange, Ed25519 signatures, AES-256-GCM authenticated
// encryption and the HKDF/HMAC key derivation steps.
package crypto
