package session

import (
	"errors"

	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/protocol/ratchet"
	"cachet/internal/util/memzero"
)

const (
	// DefaultMaxSkipped bounds the skipped-key cache per session.
	DefaultMaxSkipped = 256

	// MaxSkipAhead bounds how far a single header may run ahead of the
	// receiving chain before the message is rejected outright.
	MaxSkipAhead = 512
)

var errNoSendingChain = errors.New("session: sending chain uninitialised")

// core is the mutable ratchet state. The receive path stages a copy and
// commits it only after authenticated decryption succeeds.
type core struct {
	root domain.SymmetricKey

	dhPriv domain.X25519Private
	dhPub  domain.X25519Public

	remotePub  domain.X25519Public
	haveRemote bool

	sendCK   domain.SymmetricKey
	haveSend bool
	recvCK   domain.SymmetricKey
	haveRecv bool

	ns, nr, pn uint32
}

// Session is the per-peer Double Ratchet state machine. Callers must
// serialize Send/Receive on one session; sessions for different peers
// are independent.
type Session struct {
	peer string
	core
	skipped *SkippedKeys
}

// NewAsSender initializes a session on first send. A fresh ratchet pair
// and one DH ratchet step against the peer's certificate key seed the
// sending chain; the peer performs the mirror step on first receive.
func NewAsSender(peer string, root domain.SymmetricKey, peerKey domain.X25519Public) (*Session, error) {
	s := &Session{
		peer:    peer,
		core:    core{root: root},
		skipped: NewSkippedKeys(DefaultMaxSkipped),
	}
	if err := s.EnsureSendChain(peerKey); err != nil {
		return nil, err
	}
	return s, nil
}

// NewAsReceiver initializes a session on first receive. The identity
// pair serves as the initial ratchet pair so the sender's first DH step
// lines up; the chains are established by the first staged receive.
func NewAsReceiver(peer string, root domain.SymmetricKey, self domain.Identity) *Session {
	return &Session{
		peer: peer,
		core: core{
			root:   root,
			dhPriv: self.XPriv,
			dhPub:  self.XPub,
		},
		skipped: NewSkippedKeys(DefaultMaxSkipped),
	}
}

// Peer returns the username this session belongs to.
func (s *Session) Peer() string { return s.peer }

// CanSend reports whether a sending chain is established.
func (s *Session) CanSend() bool { return s.haveSend }

// SkippedCount returns the number of cached out-of-order keys.
func (s *Session) SkippedCount() int { return s.skipped.Len() }

// EnsureSendChain establishes the sending chain if the session was
// created as a receiver and has not ratcheted yet.
func (s *Session) EnsureSendChain(peerKey domain.X25519Public) error {
	if s.haveSend {
		return nil
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh, err := crypto.DH(priv, peerKey)
	if err != nil {
		return err
	}
	s.root, s.sendCK = ratchet.StepRoot(s.root, dh)
	memzero.Zero(dh[:])
	s.haveSend = true
	s.dhPriv, s.dhPub = priv, pub
	s.remotePub, s.haveRemote = peerKey, true
	s.ns, s.pn = 0, 0
	return nil
}

// AdvanceSend steps the sending chain and returns the one-use message
// key together with the ratchet fields of the outgoing header. The step
// commits immediately: a send cannot be retracted without reusing a
// message key.
func (s *Session) AdvanceSend() (domain.SymmetricKey, domain.Header, error) {
	if !s.haveSend {
		return domain.SymmetricKey{}, domain.Header{}, errNoSendingChain
	}
	next, mk := ratchet.StepChain(s.sendCK)
	s.sendCK = next
	h := domain.Header{
		DHPublic:     s.dhPub,
		PrevChainLen: s.pn,
		N:            s.ns,
	}
	s.ns++
	return mk, h, nil
}

// Staged is a receive in flight: the message key plus the state
// mutations to apply once the ciphertext authenticates. Discarding a
// Staged leaves the session able to decrypt every future message; keys
// cached while catching up stay cached, since they were derived
// independently of the ciphertext under test.
type Staged struct {
	s   *Session
	Key domain.SymmetricKey

	fromCache bool
	cacheID   skippedID
	next      core
}

// StageRecv locates or derives the message key for the header,
// ratcheting forward on a staged copy of the session state.
func (s *Session) StageRecv(h domain.Header) (*Staged, error) {
	// Out-of-order or cross-ratchet arrival with a cached key: consume
	// it on commit.
	if mk, ok := s.skipped.Get(h.DHPublic, h.N); ok {
		return &Staged{
			s:         s,
			Key:       mk,
			fromCache: true,
			cacheID:   skippedID{pub: h.DHPublic, n: h.N},
		}, nil
	}

	c := s.core

	if !c.haveRemote || c.remotePub != h.DHPublic {
		// The peer announced a new ratchet key. Finalize the old
		// receiving chain up to its declared length so earlier messages
		// stay recoverable, then adopt the new key.
		if err := skipAhead(&c, s.skipped, h.PrevChainLen); err != nil {
			return nil, err
		}
		if err := dhRatchet(&c, h.DHPublic); err != nil {
			return nil, err
		}
	}

	if h.N < c.nr {
		// The chain is already past this index and no key is cached.
		if s.skipped.WasEvicted(h.DHPublic, h.N) {
			return nil, domain.ErrBeyondSkipLimit
		}
		return nil, domain.ErrUndeliverable
	}

	if err := skipAhead(&c, s.skipped, h.N); err != nil {
		return nil, err
	}
	next, mk := ratchet.StepChain(c.recvCK)
	c.recvCK = next
	c.nr = h.N + 1

	return &Staged{s: s, Key: mk, next: c}, nil
}

// Commit applies the staged receive after successful decryption.
func (st *Staged) Commit() {
	if st.fromCache {
		st.s.skipped.Delete(st.cacheID.pub, st.cacheID.n)
		return
	}
	st.s.core = st.next
}

// skipAhead advances the staged receiving chain to index until, caching
// every intermediate key. Insertions go straight to the shared cache:
// they are valid whether or not the current ciphertext authenticates.
func skipAhead(c *core, cache *SkippedKeys, until uint32) error {
	if until <= c.nr {
		return nil
	}
	if !c.haveRecv {
		// The header claims keys on a chain that was never established.
		return domain.ErrBeyondSkipLimit
	}
	if until-c.nr > MaxSkipAhead {
		return domain.ErrBeyondSkipLimit
	}
	for c.nr < until {
		next, mk := ratchet.StepChain(c.recvCK)
		cache.Put(c.remotePub, c.nr, mk)
		c.recvCK = next
		c.nr++
	}
	return nil
}

// dhRatchet adopts a new remote ratchet key: one root step with the
// current pair finalizes the receiving side, a second with a fresh pair
// re-seeds the sending side. A pair compromised before this point
// cannot follow the conversation past it.
func dhRatchet(c *core, remote domain.X25519Public) error {
	c.pn = c.ns
	c.ns, c.nr = 0, 0

	dh, err := crypto.DH(c.dhPriv, remote)
	if err != nil {
		return err
	}
	c.root, c.recvCK = ratchet.StepRoot(c.root, dh)
	memzero.Zero(dh[:])
	c.haveRecv = true

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh2, err := crypto.DH(priv, remote)
	if err != nil {
		return err
	}
	c.root, c.sendCK = ratchet.StepRoot(c.root, dh2)
	memzero.Zero(dh2[:])
	c.haveSend = true

	c.dhPriv, c.dhPub = priv, pub
	c.remotePub, c.haveRemote = remote, true
	return nil
}

// Zeroize wipes all key material before the session is dropped.
func (s *Session) Zeroize() {
	memzero.Zero(s.root[:])
	memzero.Zero(s.dhPriv[:])
	memzero.Zero(s.sendCK[:])
	memzero.Zero(s.recvCK[:])
	s.haveSend, s.haveRecv = false, false
	s.skipped.Zeroize()
}
