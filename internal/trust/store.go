package trust

import (
	"encoding/binary"
	"sync"

	"cachet/internal/crypto"
	"cachet/internal/domain"
)

// CertificateBytes is the canonical encoding signed by the authority:
// a big-endian uint16 username length, the username bytes, then the
// 32-byte exchange key. Both ends must produce identical bytes or
// verification fails.
func CertificateBytes(c domain.Certificate) []byte {
	name := []byte(c.Username)
	out := make([]byte, 0, 2+len(name)+32)
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(name)))
	out = append(out, l[:]...)
	out = append(out, name...)
	out = append(out, c.ExchangeKey.Slice()...)
	return out
}

// Sign produces the authority signature over a certificate. This is the
// certificate authority's half; the client only ever verifies.
func Sign(authority domain.Ed25519Private, c domain.Certificate) []byte {
	return crypto.SignEd25519(authority, CertificateBytes(c))
}

// Store holds certificates accepted through the authority-signature
// gate. Safe for concurrent use.
type Store struct {
	authority domain.Ed25519Public

	mu    sync.RWMutex
	certs map[domain.Username]domain.Certificate
}

// NewStore returns an empty store trusting the given authority key.
func NewStore(authority domain.Ed25519Public) *Store {
	return &Store{
		authority: authority,
		certs:     make(map[domain.Username]domain.Certificate),
	}
}

// Add verifies sig over the certificate's canonical bytes and stores the
// certificate under its username, replacing any prior one. On a bad
// signature nothing is stored and domain.ErrInvalidSignature is
// returned.
func (s *Store) Add(cert domain.Certificate, sig []byte) error {
	if !crypto.VerifyEd25519(s.authority, CertificateBytes(cert), sig) {
		return domain.ErrInvalidSignature
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[cert.Username] = cert
	return nil
}

// Lookup returns the accepted certificate for username.
func (s *Store) Lookup(username domain.Username) (domain.Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[username]
	return c, ok
}

// Remove drops the certificate for username, if any.
func (s *Store) Remove(username domain.Username) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.certs, username)
}

// Compile-time assertion that Store implements domain.CertificateStore.
var _ domain.CertificateStore = (*Store)(nil)
