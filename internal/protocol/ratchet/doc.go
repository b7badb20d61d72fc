// Package ratchet is the pure key-derivation core of the Double
// Ratchet: the DH ratchet step advancing the root key and the symmetric
// step advancing a chain key. It holds no state; the session layer owns
// ordering and commitment.
package ratchet
