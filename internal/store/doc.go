// Package store persists the long-term identity, accepted certificates
// and session snapshots as files: secrets inside a passphrase-derived
// scrypt + ChaCha20-Poly1305 envelope, public data as plain JSON, all
// written atomically via temp-file rename.
package store
