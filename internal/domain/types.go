package domain

// Username identifies a peer within the trust domain.
type Username = string

// Fingerprint is a short hex digest of a public key.
type Fingerprint = string

// Identity holds the long-term key-exchange pair stored locally.
// The public half is what a certificate carries; the private half
// never leaves the keystore.
type Identity struct {
	XPub  X25519Public
	XPriv X25519Private
}

// Certificate binds a username to a key-exchange public key. It is
// immutable once issued; peers accept it only together with a valid
// authority signature over its canonical encoding.
type Certificate struct {
	Username    Username     `json:"username"`
	ExchangeKey X25519Public `json:"exchange_key"`
}

// Header accompanies every ciphertext. All fields are authenticated as
// associated data; the escrow fields are themselves ciphertext and the
// rest is public.
type Header struct {
	// DHPublic is the sender's current ratchet public key.
	DHPublic X25519Public
	// PrevChainLen is the number of messages in the sender's previous
	// sending chain, so the receiver can locate skipped keys across a
	// ratchet boundary.
	PrevChainLen uint32
	// N is the index of this message within the current sending chain.
	N uint32
	// ReceiverIV is the AEAD nonce for the payload ciphertext.
	ReceiverIV IV

	// EscrowPub is the per-message ephemeral public value of the escrow
	// wrap (v_gov).
	EscrowPub X25519Public
	// EscrowIV is the AEAD nonce used by the escrow wrap (iv_gov).
	EscrowIV IV
	// EscrowWrapped is the message key sealed to the escrow authority
	// (c_gov), 48 bytes: 32-byte key plus 16-byte tag.
	EscrowWrapped []byte
}

// Message is the unit handed to the transport: a header and the
// authenticated payload ciphertext.
type Message struct {
	Header Header
	Cipher []byte
}

// Envelope is the wire form carried via the relay. HeaderBytes is the
// exact canonical header encoding so both ends authenticate identical
// associated data.
type Envelope struct {
	From        Username `json:"from"`
	To          Username `json:"to"`
	HeaderBytes []byte   `json:"header"`
	Cipher      []byte   `json:"cipher"`
	Timestamp   int64    `json:"timestamp"`
}

// CertificateRecord pairs a certificate with its authority signature
// for publication and persistence.
type CertificateRecord struct {
	Certificate Certificate `json:"certificate"`
	Signature   []byte      `json:"signature"`
}
