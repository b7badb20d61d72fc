// Package handshake derives the initial root key two certificate
// holders share before their first ratchet step.
package handshake
