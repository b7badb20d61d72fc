package domain

import "context"

// CertificateStore holds peer certificates accepted through the
// authority-signature gate.
type CertificateStore interface {
	// Add verifies sig over the certificate's canonical bytes and, on
	// success, stores the certificate under its username, replacing any
	// prior one. On failure nothing is stored and ErrInvalidSignature
	// is returned.
	Add(cert Certificate, sig []byte) error

	// Lookup returns the accepted certificate for username.
	Lookup(username Username) (Certificate, bool)
}

// IdentityStore persists the long-term identity keys, encrypted under a
// passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}

// RelayClient is how the CLI talks to the store-and-forward relay.
type RelayClient interface {
	PublishCertificate(ctx context.Context, rec CertificateRecord) error
	FetchCertificate(ctx context.Context, username Username) (CertificateRecord, error)

	SendEnvelope(ctx context.Context, env Envelope) error
	FetchEnvelopes(ctx context.Context, username Username, limit int) ([]Envelope, error)
	AckEnvelopes(ctx context.Context, username Username, count int) error
}
