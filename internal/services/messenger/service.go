package messenger

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/protocol/handshake"
	"cachet/internal/session"
	"cachet/internal/trust"
	"cachet/internal/wire"
)

var errNoIdentity = errors.New("messenger: no identity; generate a certificate first")

// Service is the top-level messaging facade: it owns the certificate
// store and the per-peer sessions, and exposes the send/receive entry
// points. One Service instance represents one user.
//
// Sessions for different peers may be driven concurrently; operations
// on one session are serialized by a per-session mutex because ratchet
// advancement is order-dependent.
type Service struct {
	log       *zap.Logger
	certs     *trust.Store
	escrowKey domain.X25519Public
	rootFn    handshake.RootKeyFunc

	username     domain.Username
	identity     domain.Identity
	cert         domain.Certificate
	haveIdentity bool

	mu       sync.Mutex
	sessions map[domain.Username]*peerSession
}

type peerSession struct {
	mu sync.Mutex
	s  *session.Session
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger; default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRootKeyFunc replaces the initial root-key derivation, for
// deployments bootstrapping from a richer handshake.
func WithRootKeyFunc(fn handshake.RootKeyFunc) Option {
	return func(s *Service) { s.rootFn = fn }
}

// New returns a Service trusting the given certificate authority and
// escrowing every message key under escrowKey.
func New(authority domain.Ed25519Public, escrowKey domain.X25519Public, opts ...Option) *Service {
	s := &Service{
		log:       zap.NewNop(),
		certs:     trust.NewStore(authority),
		escrowKey: escrowKey,
		rootFn:    handshake.CertificateRoot,
		sessions:  make(map[domain.Username]*peerSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCertificate creates a fresh key-exchange pair and returns the
// certificate carrying its public half. The secret half stays inside
// the service and is never part of the certificate.
func (s *Service) GenerateCertificate(username domain.Username) (domain.Certificate, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Certificate{}, err
	}
	return s.UseIdentity(username, domain.Identity{XPub: pub, XPriv: priv}), nil
}

// UseIdentity adopts a previously stored identity instead of generating
// a fresh one.
func (s *Service) UseIdentity(username domain.Username, id domain.Identity) domain.Certificate {
	s.username = username
	s.identity = id
	s.cert = domain.Certificate{Username: username, ExchangeKey: id.XPub}
	s.haveIdentity = true
	return s.cert
}

// Certificate returns our own certificate.
func (s *Service) Certificate() domain.Certificate { return s.cert }

// Identity returns the long-term identity keys, for the keystore.
func (s *Service) Identity() domain.Identity { return s.identity }

// Username returns the local username.
func (s *Service) Username() domain.Username { return s.username }

// ReceiveCertificate verifies the authority signature and stores the
// peer certificate. On a bad signature nothing is stored and sessions
// with that peer remain impossible.
func (s *Service) ReceiveCertificate(cert domain.Certificate, sig []byte) error {
	if err := s.certs.Add(cert, sig); err != nil {
		s.log.Warn("certificate rejected",
			zap.String("peer", cert.Username),
			zap.Error(err))
		return err
	}
	s.log.Info("certificate accepted",
		zap.String("peer", cert.Username),
		zap.String("fingerprint", crypto.Fingerprint(cert.ExchangeKey.Slice())))
	return nil
}

// Send encrypts plaintext for peer and returns the wire message. The
// session is created on first use; the ratchet advance commits before
// the message is returned, so a send must not be retried by re-deriving.
func (s *Service) Send(peer domain.Username, plaintext []byte) (domain.Message, error) {
	cert, ok := s.certs.Lookup(peer)
	if !ok {
		return domain.Message{}, fmt.Errorf("send to %q: %w", peer, domain.ErrUnknownSender)
	}
	ps, err := s.sessionFor(peer, cert, true)
	if err != nil {
		return domain.Message{}, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	// A session first created on receive may predate any send; give it
	// a sending chain now.
	if err := ps.s.EnsureSendChain(cert.ExchangeKey); err != nil {
		return domain.Message{}, err
	}
	msg, err := wire.BuildMessage(ps.s, s.escrowKey, plaintext)
	if err != nil {
		return domain.Message{}, err
	}
	s.log.Debug("message sent",
		zap.String("peer", peer),
		zap.Uint32("n", msg.Header.N))
	return msg, nil
}

// Receive verifies and decrypts a message from peer. Failures are
// dropped without returning partial plaintext: ErrTamper on a bad tag,
// ErrBeyondSkipLimit when the key was evicted before arrival,
// ErrUndeliverable on replay.
func (s *Service) Receive(peer domain.Username, msg domain.Message) ([]byte, error) {
	cert, ok := s.certs.Lookup(peer)
	if !ok {
		return nil, fmt.Errorf("receive from %q: %w", peer, domain.ErrUnknownSender)
	}
	ps, err := s.sessionFor(peer, cert, false)
	if err != nil {
		return nil, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	pt, err := wire.OpenMessage(ps.s, msg)
	if err != nil {
		s.log.Warn("message dropped",
			zap.String("peer", peer),
			zap.Uint32("n", msg.Header.N),
			zap.Error(err))
		return nil, err
	}
	return pt, nil
}

// DeleteSession wipes and removes the session with peer, if any.
func (s *Service) DeleteSession(peer domain.Username) bool {
	s.mu.Lock()
	ps, ok := s.sessions[peer]
	delete(s.sessions, peer)
	s.mu.Unlock()
	if !ok {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.s.Zeroize()
	return true
}

// HasSession reports whether a session with peer exists.
func (s *Service) HasSession(peer domain.Username) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[peer]
	return ok
}

// ExportSession snapshots the session with peer for persistence.
func (s *Service) ExportSession(peer domain.Username) (session.State, bool) {
	s.mu.Lock()
	ps, ok := s.sessions[peer]
	s.mu.Unlock()
	if !ok {
		return session.State{}, false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.s.Snapshot(), true
}

// ImportSession restores a previously exported session, replacing any
// in-memory one for the same peer.
func (s *Service) ImportSession(st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[st.Peer] = &peerSession{s: session.FromState(st)}
}

// sessionFor returns the session with peer, creating it on first use.
func (s *Service) sessionFor(peer domain.Username, cert domain.Certificate, asSender bool) (*peerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ps, ok := s.sessions[peer]; ok {
		return ps, nil
	}
	if !s.haveIdentity {
		return nil, errNoIdentity
	}
	root, err := s.rootFn(s.identity, cert)
	if err != nil {
		return nil, err
	}
	var sess *session.Session
	if asSender {
		if sess, err = session.NewAsSender(peer, root, cert.ExchangeKey); err != nil {
			return nil, err
		}
	} else {
		sess = session.NewAsReceiver(peer, root, s.identity)
	}
	ps := &peerSession{s: sess}
	s.sessions[peer] = ps
	return ps, nil
}
